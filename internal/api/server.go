package api

import (
	"context"
	"net/http"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type JobService interface {
	StartJob(ctx context.Context, req domain.StartJobRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	JobResults(ctx context.Context, jobID string) ([]domain.ResultRecord, error)
	JobReport(ctx context.Context, jobID, accession string) ([]byte, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

type Authenticator interface {
	Register(ctx context.Context, username, password string) (domain.User, error)
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
}

type Options struct {
	Logger *zap.Logger
	Jobs   JobService
	Auth   Authenticator

	// RateLimiter guards job submission. Nil disables rate limiting.
	RateLimiter      RateLimiter
	RateLimitSubject string

	// Registry receives the API's metrics and is served on /metrics.
	// A fresh registry is created when nil.
	Registry *prometheus.Registry
	Tracer   trace.Tracer
}

type Server struct {
	logger           *zap.Logger
	jobs             JobService
	auth             Authenticator
	rateLimiter      RateLimiter
	rateLimitSubject string
	metrics          *metrics
	tracer           trace.Tracer
	router           chi.Router
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	subject := opts.RateLimitSubject
	if subject == "" {
		subject = "jobs"
	}

	s := &Server{
		logger:           logger.Named("api"),
		jobs:             opts.Jobs,
		auth:             opts.Auth,
		rateLimiter:      opts.RateLimiter,
		rateLimitSubject: subject,
		metrics:          newMetrics(opts.Registry),
		tracer:           opts.Tracer,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.withTracing,
		s.metrics.withHTTPMetrics,
	)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.metricsHandler())
	r.Post("/v1/users", s.handleRegister)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(s.requireUser)

		r.With(s.withRateLimit).Post("/", s.handleStartJob)
		r.Get("/", s.handleListJobs)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleJobStatus)
			r.Delete("/", s.handleDeleteJob)
			r.Get("/results", s.handleJobResults)
			r.Get("/results.csv", s.handleExportCSV)
			r.Get("/results.xlsx", s.handleExportXLSX)
			r.Get("/reports/{accession}", s.handleJobReport)
		})
	})

	s.router = r
}
