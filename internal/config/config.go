package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dunamismax/blastflow/internal/telemetry"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"

	ArtifactsNone  = "none"
	ArtifactsLocal = "local"
	ArtifactsMinio = "minio"
)

type Config struct {
	API       APIConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	BLAST     BLASTConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

type APIConfig struct {
	Addr            string        `env:"BLASTFLOW_API_ADDR"         envDefault:":8080"`
	DispatchMode    string        `env:"BLASTFLOW_DISPATCH_MODE"    envDefault:"inline"`
	AdminPassword   string        `env:"BLASTFLOW_ADMIN_PASSWORD"   envDefault:"admin"`
	ShutdownTimeout time.Duration `env:"BLASTFLOW_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type QueueConfig struct {
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	Name          string `env:"ASYNC_QUEUE"    envDefault:"blast"`
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

// WorkerConfig tunes the queue worker. A zero TaskTimeout puts no wall-clock
// limit on a job; a job that hits a configured limit stays RUNNING with the
// rows it produced so far.
type WorkerConfig struct {
	Concurrency     int           `env:"WORKER_CONCURRENCY"`
	MaxActiveJobs   int           `env:"WORKER_MAX_ACTIVE_JOBS"`
	TaskTimeout     time.Duration `env:"WORKER_TASK_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"8s"`
	MetricsAddr     string        `env:"WORKER_METRICS_ADDR"     envDefault:":9091"`
}

type StorageConfig struct {
	Backend   string `env:"ARTIFACT_BACKEND"   envDefault:"local"`
	LocalDir  string `env:"ARTIFACT_LOCAL_DIR" envDefault:"blast_results_ncbi"`
	Endpoint  string `env:"MINIO_ENDPOINT"     envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"   envDefault:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY"   envDefault:"minioadmin"`
	Bucket    string `env:"MINIO_BUCKET"       envDefault:"blastflow-results"`
	UseSSL    bool   `env:"MINIO_USE_SSL"      envDefault:"false"`
}

// DatabaseConfig selects the job store. An empty DSN keeps jobs in memory.
type DatabaseConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type BLASTConfig struct {
	SearchURL         string        `env:"BLAST_SEARCH_URL"          envDefault:"https://blast.ncbi.nlm.nih.gov/Blast.cgi"`
	SequenceURL       string        `env:"BLAST_SEQUENCE_URL"        envDefault:"https://www.ncbi.nlm.nih.gov/sviewer/viewer.fcgi"`
	AnnotationURL     string        `env:"BLAST_ANNOTATION_URL"      envDefault:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"`
	Email             string        `env:"BLAST_EMAIL"               envDefault:"blastflow@example.org"`
	Program           string        `env:"BLAST_PROGRAM"             envDefault:"blastp"`
	Database          string        `env:"BLAST_DATABASE"            envDefault:"nr"`
	PollInterval      time.Duration `env:"BLAST_POLL_INTERVAL"       envDefault:"8s"`
	RequestDelay      time.Duration `env:"BLAST_REQUEST_DELAY"       envDefault:"3s"`
	RequestTimeout    time.Duration `env:"BLAST_REQUEST_TIMEOUT"     envDefault:"10s"`
	StatusTimeout     time.Duration `env:"BLAST_STATUS_TIMEOUT"      envDefault:"30s"`
	RequestsPerSecond float64       `env:"BLAST_REQUESTS_PER_SECOND" envDefault:"0"`
}

type WebhookConfig struct {
	URL            string        `env:"WEBHOOK_URL"`
	SigningSecret  string        `env:"WEBHOOK_SIGNING_SECRET"`
	Timeout        time.Duration `env:"WEBHOOK_TIMEOUT"         envDefault:"10s"`
	MaxAttempts    int           `env:"WEBHOOK_MAX_ATTEMPTS"    envDefault:"3"`
	InitialBackoff time.Duration `env:"WEBHOOK_INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff     time.Duration `env:"WEBHOOK_MAX_BACKOFF"     envDefault:"10s"`
}

type RateLimitConfig struct {
	Enabled      bool          `env:"RATE_LIMIT_ENABLED"  envDefault:"false"`
	Capacity     int           `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
	Window       time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"1m"`
	KeyPrefix    string        `env:"RATE_LIMIT_PREFIX"   envDefault:"blastflow:ratelimit"`
	SubjectLabel string        `env:"RATE_LIMIT_SUBJECT"  envDefault:"jobs"`
}

type TelemetryConfig struct {
	ServiceName  string  `env:"OTEL_SERVICE_NAME"           envDefault:"blastflow"`
	Exporter     string  `env:"OTEL_TRACES_EXPORTER"        envDefault:"none"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_ARG"     envDefault:"1"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Trace converts the telemetry settings for a named service.
func (t TelemetryConfig) Trace(component string) telemetry.TraceConfig {
	name := t.ServiceName
	if component != "" {
		name += "-" + component
	}
	return telemetry.TraceConfig{
		ServiceName:  name,
		Exporter:     t.Exporter,
		OTLPEndpoint: t.OTLPEndpoint,
		OTLPInsecure: t.OTLPInsecure,
		SampleRatio:  t.SampleRatio,
	}
}

func (c *Config) Sanitize() {
	c.API.DispatchMode = strings.ToLower(strings.TrimSpace(c.API.DispatchMode))
	if c.API.DispatchMode != DispatchQueue {
		c.API.DispatchMode = DispatchInline
	}
	if c.API.ShutdownTimeout <= 0 {
		c.API.ShutdownTimeout = 10 * time.Second
	}

	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = max(2, runtime.NumCPU())
	}
	if c.Worker.MaxActiveJobs <= 0 {
		c.Worker.MaxActiveJobs = max(1, runtime.NumCPU()/2)
	}
	if c.Worker.TaskTimeout < 0 {
		c.Worker.TaskTimeout = 0
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 8 * time.Second
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case ArtifactsNone, ArtifactsLocal, ArtifactsMinio:
	default:
		c.Storage.Backend = ArtifactsLocal
	}

	if c.BLAST.PollInterval <= 0 {
		c.BLAST.PollInterval = 8 * time.Second
	}
	if c.BLAST.RequestDelay < 0 {
		c.BLAST.RequestDelay = 0
	}
	if c.BLAST.RequestsPerSecond < 0 {
		c.BLAST.RequestsPerSecond = 0
	}

	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 10
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
}
