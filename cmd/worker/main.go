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

	"github.com/dunamismax/blastflow/internal/bootstrap"
	"github.com/dunamismax/blastflow/internal/config"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/telemetry"
	"github.com/dunamismax/blastflow/internal/worker"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Trace("worker"), logger)
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

	if cfg.Database.DSN == "" {
		logger.Warn("POSTGRES_DSN is empty; job progress will not be visible to the api")
	}
	jobs, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	artifacts, err := bootstrap.OpenArtifacts(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	logger.Info("starting worker",
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.Int("max_active_jobs", cfg.Worker.MaxActiveJobs),
		zap.String("queue", cfg.Queue.Name),
		zap.String("redis", cfg.Queue.RedisAddr),
	)

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, func(metrics *pipeline.Metrics) (*pipeline.Runner, error) {
		return bootstrap.NewRunner(bootstrap.RunnerDeps{
			Config:    cfg,
			Jobs:      jobs,
			Artifacts: artifacts,
			Logger:    logger,
		}, metrics)
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           srv.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", cfg.Worker.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	<-sigCtx.Done()

	logger.Info("shutting down worker", zap.Duration("grace", cfg.Worker.ShutdownTimeout))
	srv.Shutdown()
	return nil
}
