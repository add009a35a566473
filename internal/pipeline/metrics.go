package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the runner's Prometheus instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	jobsTotal         *prometheus.CounterVec
	jobDuration       prometheus.Histogram
	activeJobs        prometheus.Gauge
	accessionsTotal   *prometheus.CounterVec
	accessionDuration *prometheus.HistogramVec
	nonFatalTotal     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blastflow_pipeline_jobs_total",
			Help: "Jobs finished by the runner, by final result.",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blastflow_pipeline_job_duration_seconds",
			Help:    "Wall time of each job run.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastflow_pipeline_active_jobs",
			Help: "Jobs currently executing in this process.",
		}),
		accessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blastflow_pipeline_accessions_total",
			Help: "Accessions processed, by outcome.",
		}, []string{"outcome"}),
		accessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blastflow_pipeline_accession_duration_seconds",
			Help:    "Time spent on one accession from fetch to result row.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		nonFatalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blastflow_pipeline_nonfatal_errors_total",
			Help: "Swallowed failures, by pipeline step.",
		}, []string{"step"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.jobsTotal,
			m.jobDuration,
			m.activeJobs,
			m.accessionsTotal,
			m.accessionDuration,
			m.nonFatalTotal,
		)
	}
	return m
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.activeJobs.Inc()
}

func (m *Metrics) jobFinished(result string, seconds float64) {
	if m == nil {
		return
	}
	m.activeJobs.Dec()
	m.jobsTotal.WithLabelValues(result).Inc()
	m.jobDuration.Observe(seconds)
}

func (m *Metrics) accession(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.accessionsTotal.WithLabelValues(outcome).Inc()
	m.accessionDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) nonFatal(step string) {
	if m == nil {
		return
	}
	m.nonFatalTotal.WithLabelValues(step).Inc()
}
