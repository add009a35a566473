// Package bootstrap assembles the process-level dependencies shared by the
// API, the worker and the command line tool.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dunamismax/blastflow/internal/blast"
	"github.com/dunamismax/blastflow/internal/config"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/ratelimit"
	"github.com/dunamismax/blastflow/internal/storage"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/dunamismax/blastflow/internal/webhook"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OpenStore returns the postgres store when a DSN is configured and the
// in-memory store otherwise. The returned close func is never nil.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (store.Store, func() error, error) {
	if cfg.DSN == "" {
		logger.Info("using in-memory job store")
		return store.NewMemoryStore(), func() error { return nil }, nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres store: %w", err)
	}
	logger.Info("using postgres job store")
	return pg, pg.Close, nil
}

// OpenArtifacts builds the report store selected by the storage backend.
// A nil store means reports are not kept.
func OpenArtifacts(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.ArtifactStore, error) {
	switch cfg.Backend {
	case config.ArtifactsNone:
		logger.Info("result artifacts disabled")
		return nil, nil
	case config.ArtifactsMinio:
		client, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Endpoint,
			Access:   cfg.AccessKey,
			Secret:   cfg.SecretKey,
			Bucket:   cfg.Bucket,
			UseSSL:   cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create object storage client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("storing result artifacts in object storage", zap.String("bucket", client.Bucket()))
		return storage.NewObjectArtifacts(client), nil
	default:
		logger.Info("storing result artifacts on disk", zap.String("dir", cfg.LocalDir))
		return &storage.LocalArtifacts{Dir: cfg.LocalDir}, nil
	}
}

func NewSearchClient(cfg config.BLASTConfig, logger *zap.Logger) *blast.Client {
	return blast.NewClient(blast.Config{
		SearchURL:         cfg.SearchURL,
		SequenceURL:       cfg.SequenceURL,
		AnnotationURL:     cfg.AnnotationURL,
		Email:             cfg.Email,
		Program:           cfg.Program,
		Database:          cfg.Database,
		PollInterval:      cfg.PollInterval,
		RequestTimeout:    cfg.RequestTimeout,
		StatusTimeout:     cfg.StatusTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, &http.Client{}, logger)
}

// NewNotifier returns nil when no webhook URL is configured.
func NewNotifier(cfg config.WebhookConfig) pipeline.Notifier {
	if cfg.URL == "" {
		return nil
	}
	client := webhook.NewClient(webhook.Config{
		SigningSecret:  cfg.SigningSecret,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	})
	return webhook.NewJobNotifier(client, cfg.URL)
}

// RunnerDeps are the long-lived collaborators of every runner a process
// builds.
type RunnerDeps struct {
	Config    config.Config
	Jobs      pipeline.JobWriter
	Artifacts storage.ArtifactStore
	Logger    *zap.Logger
}

// NewRunner builds a job runner from configuration. A zero request delay
// in configuration disables the pause between accessions.
func NewRunner(deps RunnerDeps, metrics *pipeline.Metrics) (*pipeline.Runner, error) {
	delay := deps.Config.BLAST.RequestDelay
	if delay == 0 {
		delay = -1
	}

	return pipeline.NewRunner(pipeline.Options{
		Client:       NewSearchClient(deps.Config.BLAST, deps.Logger),
		Store:        deps.Jobs,
		Artifacts:    deps.Artifacts,
		Notifier:     NewNotifier(deps.Config.Webhook),
		Logger:       deps.Logger,
		Metrics:      metrics,
		RequestDelay: delay,
	})
}

// NewRateLimiter returns a redis backed token bucket, or nil when rate
// limiting is disabled. The caller owns the returned redis client.
func NewRateLimiter(ctx context.Context, cfg config.Config) (*ratelimit.RedisTokenBucket, *redis.Client, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis for rate limiting: %w", err)
	}

	limiter, err := ratelimit.NewRedisTokenBucket(client, ratelimit.Config{
		Capacity:  cfg.RateLimit.Capacity,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: cfg.RateLimit.KeyPrefix,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create rate limiter: %w", err)
	}
	return limiter, client, nil
}
