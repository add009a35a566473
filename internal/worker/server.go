package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/blastflow/internal/config"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/queue"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RunnerFactory builds the job runner once the worker's metrics exist.
type RunnerFactory func(metrics *pipeline.Metrics) (*pipeline.Runner, error)

type Server struct {
	logger  *zap.Logger
	server  *asynq.Server
	sem     chan struct{}
	runner  runFunc
	metrics *metrics
	tracer  trace.Tracer
}

type runFunc func(ctx context.Context, req pipeline.Request) error

func NewServer(
	logger *zap.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	newRunner RunnerFactory,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("worker")

	m := newMetrics()
	runner, err := newRunner(m.pipeline)
	if err != nil {
		return nil, fmt.Errorf("initialize job runner: %w", err)
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				// A job still running when this expires is requeued and
				// resumes on the next worker.
				ShutdownTimeout: workerCfg.ShutdownTimeout,
				Logger:          logger.Named("asynq").Sugar(),
				LogLevel:        asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					taskID, _ := asynq.GetTaskID(ctx)
					logger.Error("task failed", zap.String("type", task.Type()), zap.String("task_id", taskID), zap.Error(err))
				}),
			},
		),
		sem: make(chan struct{}, max(1, workerCfg.MaxActiveJobs)),
		runner: func(ctx context.Context, req pipeline.Request) error {
			_, err := runner.Run(ctx, req)
			return err
		},
		metrics: m,
		tracer:  otel.Tracer("blastflow/worker"),
	}
	return s, nil
}

// Start begins processing tasks in the background. Call Shutdown to stop.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeRunJob, s.handleRunJob)
	return s.server.Start(mux)
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleRunJob(ctx context.Context, task *asynq.Task) error {
	result := "failed"
	defer func() {
		s.metrics.tasksTotal.WithLabelValues(result).Inc()
	}()

	payload, err := queue.ParseRunJobPayload(task)
	if err != nil {
		result = "invalid"
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	req := payload.Request
	if !payload.RequestedAt.IsZero() {
		s.metrics.taskLatency.Observe(time.Since(payload.RequestedAt).Seconds())
	}

	ctx, span := s.tracer.Start(ctx, "worker.run_job", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("job.id", req.JobID),
		attribute.Int("job.accessions", len(req.Accessions)),
	)
	defer span.End()

	s.metrics.waitingJobs.Inc()
	select {
	case s.sem <- struct{}{}:
		s.metrics.waitingJobs.Dec()
	case <-ctx.Done():
		s.metrics.waitingJobs.Dec()
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	s.logger.Info("running job",
		zap.String("job_id", req.JobID),
		zap.Int("accessions", len(req.Accessions)),
		zap.String("organism", req.Organism),
	)

	if err := s.runner(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job run failed")
		return fmt.Errorf("run job %s: %w: %w", req.JobID, err, asynq.SkipRetry)
	}

	result = "done"
	span.SetStatus(codes.Ok, "done")
	return nil
}
