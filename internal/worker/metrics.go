package worker

import (
	"net/http"

	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry    *prometheus.Registry
	tasksTotal  *prometheus.CounterVec
	taskLatency prometheus.Histogram
	waitingJobs prometheus.Gauge
	pipeline    *pipeline.Metrics
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blastflow_worker_tasks_total",
			Help: "Queue tasks handled by the worker, by result.",
		}, []string{"result"}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blastflow_worker_task_queue_latency_seconds",
			Help:    "Time between job submission and the worker picking it up.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		waitingJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastflow_worker_waiting_jobs",
			Help: "Tasks received but waiting for an active-job slot.",
		}),
	}
	registry.MustRegister(m.tasksTotal, m.taskLatency, m.waitingJobs)
	m.pipeline = pipeline.NewMetrics(registry)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
