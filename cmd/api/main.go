package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/blastflow/internal/api"
	"github.com/dunamismax/blastflow/internal/auth"
	"github.com/dunamismax/blastflow/internal/bootstrap"
	"github.com/dunamismax/blastflow/internal/config"
	"github.com/dunamismax/blastflow/internal/dispatch"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/queue"
	"github.com/dunamismax/blastflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Trace("api"), logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	jobs, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	users := auth.NewService(jobs, logger)
	created, err := users.EnsureAdmin(ctx, cfg.API.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if created {
		logger.Info("created admin user", zap.String("username", auth.AdminUsername))
	}

	artifacts, err := bootstrap.OpenArtifacts(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		launcher dispatch.Launcher
		inline   *dispatch.Registry
	)
	switch cfg.API.DispatchMode {
	case config.DispatchQueue:
		queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name, cfg.Worker.TaskTimeout)
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warn("queue client close failed", zap.Error(err))
			}
		}()
		launcher = queueClient
		logger.Info("dispatching jobs to queue", zap.String("queue", cfg.Queue.Name), zap.String("redis", cfg.Queue.RedisAddr))
	default:
		runner, err := bootstrap.NewRunner(bootstrap.RunnerDeps{
			Config:    cfg,
			Jobs:      jobs,
			Artifacts: artifacts,
			Logger:    logger,
		}, pipeline.NewMetrics(registry))
		if err != nil {
			return fmt.Errorf("create job runner: %w", err)
		}
		inline = dispatch.NewRegistry(runner, cfg.Worker.MaxActiveJobs, logger)
		launcher = inline
		logger.Info("running jobs in process", zap.Int("max_active_jobs", cfg.Worker.MaxActiveJobs))
	}

	limiter, redisClient, err := bootstrap.NewRateLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	opts := api.Options{
		Logger:           logger,
		Jobs:             dispatch.NewService(jobs, launcher, artifacts, logger),
		Auth:             users,
		RateLimitSubject: cfg.RateLimit.SubjectLabel,
		Registry:         registry,
		Tracer:           otel.Tracer("blastflow/api"),
	}
	if limiter != nil {
		opts.RateLimiter = limiter
	}
	app := api.NewServer(opts)

	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.API.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	if inline != nil {
		if err := inline.Shutdown(shutdownCtx); err != nil {
			logger.Warn("in-flight jobs did not finish", zap.Error(err))
		}
	}
	return nil
}
