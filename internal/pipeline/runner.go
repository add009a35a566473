package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/blastflow/internal/blast"
	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultRequestDelay = 3 * time.Second

// SearchClient is the remote search service as the runner uses it.
type SearchClient interface {
	FetchSequence(ctx context.Context, accession string) (string, error)
	Submit(ctx context.Context, sequence, taxID string) (string, error)
	Poll(ctx context.Context, rid string, budget time.Duration) (blast.PollStatus, error)
	FetchResult(ctx context.Context, rid string) (string, error)
	GeneSymbol(ctx context.Context, accession string) string
}

// JobWriter is the subset of the job store a runner uses. The reads let a
// redelivered job pick up where the previous run stopped.
type JobWriter interface {
	GetJob(ctx context.Context, id string) (domain.Job, bool, error)
	ListResults(ctx context.Context, jobID string) ([]domain.ResultRecord, error)
	MarkRunning(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkDone(ctx context.Context, id string) error
	AppendResult(ctx context.Context, result domain.ResultRecord) error
}

type Notifier interface {
	NotifyCompleted(ctx context.Context, summary domain.JobSummary) error
}

type Options struct {
	Client    SearchClient
	Store     JobWriter
	Artifacts ArtifactSaver
	Notifier  Notifier
	Sink      NonFatalSink
	Logger    *zap.Logger
	Metrics   *Metrics
	Tracer    trace.Tracer

	// RequestDelay is waited before every accession. Negative disables it.
	RequestDelay time.Duration
}

type Runner struct {
	client    SearchClient
	store     JobWriter
	artifacts ArtifactSaver
	notifier  Notifier
	sink      NonFatalSink
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	delay     time.Duration
	now       func() time.Time
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("search client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline")

	r := &Runner{
		client:    opts.Client,
		store:     opts.Store,
		artifacts: opts.Artifacts,
		notifier:  opts.Notifier,
		sink:      opts.Sink,
		logger:    logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		delay:     opts.RequestDelay,
		now:       time.Now,
	}
	if r.sink == nil {
		r.sink = NewLogSink(logger, opts.Metrics)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("blastflow/pipeline")
	}
	switch {
	case r.delay == 0:
		r.delay = DefaultRequestDelay
	case r.delay < 0:
		r.delay = 0
	}
	return r, nil
}

// Run executes one job to completion: mark it running, process every
// accession in order, then mark it done. A failure on one accession becomes
// that accession's result row and never affects the others.
//
// Run is safe to repeat for the same job: accessions that already have a
// row are skipped, progress never moves back, and a job that is already
// DONE is left untouched. Run returns an error only when the job could not
// be started or ctx ended before the last accession; in both cases the job
// is not marked done and the interrupted accession gets no row.
func (r *Runner) Run(ctx context.Context, req Request) (domain.JobSummary, error) {
	summary := domain.JobSummary{
		JobID:     req.JobID,
		UserID:    req.UserID,
		Organism:  domain.NormalizeOrganism(req.Organism),
		Status:    domain.JobStatusRunning,
		StartedAt: r.now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return summary, fmt.Errorf("invalid run request: %w", err)
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run_job", trace.WithAttributes(
		attribute.String("job.id", req.JobID),
		attribute.String("job.organism", summary.Organism),
		attribute.Int("job.accessions", len(req.Accessions)),
		attribute.Int("job.timeout_seconds", req.TimeoutSeconds),
	))
	defer span.End()

	logger := r.logger.With(zap.String("job_id", req.JobID))

	job, existing, err := r.loadJob(ctx, req.JobID)
	if err != nil {
		r.sink.Report(ctx, req.JobID, StepLoadJob, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load job failed")
		return summary, fmt.Errorf("load job: %w", err)
	}
	for _, rec := range existing {
		summary.Count(rec)
	}
	if job.Status == domain.JobStatusDone {
		logger.Info("job already done", zap.Int("rows", len(existing)))
		summary.Status = domain.JobStatusDone
		summary.FinishedAt = summary.StartedAt
		return summary, nil
	}

	if err := r.store.MarkRunning(ctx, req.JobID); err != nil {
		r.sink.Report(ctx, req.JobID, StepMarkRunning, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark running failed")
		return summary, fmt.Errorf("mark job running: %w", err)
	}

	r.metrics.jobStarted()
	result := "aborted"
	defer func() {
		r.metrics.jobFinished(result, r.now().Sub(summary.StartedAt).Seconds())
	}()

	total := len(req.Accessions)
	skip := processedAccessions(req.Accessions, existing)
	progress := job.Progress
	logger.Info("job started",
		zap.Int("accessions", total),
		zap.Int("already_processed", len(existing)),
		zap.String("organism", summary.Organism),
		zap.Int("timeout_seconds", req.TimeoutSeconds),
	)

	for i, accession := range req.Accessions {
		if skip[i] {
			continue
		}
		if err := sleep(ctx, r.delay); err != nil {
			return summary, r.interrupted(logger, span, i, err)
		}

		started := r.now()
		record := r.processAccession(ctx, req, accession)
		if err := ctx.Err(); err != nil {
			// The outcome reflects the interruption, not the search.
			return summary, r.interrupted(logger, span, i, err)
		}
		summary.Count(record)
		r.metrics.accession(outcomeLabel(record), r.now().Sub(started).Seconds())

		logger.Info("accession processed",
			zap.Int("index", i+1),
			zap.Int("total", total),
			zap.String("accession", accession),
			zap.String("top_hit", record.TopHit),
		)

		if err := r.store.AppendResult(ctx, record); err != nil {
			r.sink.Report(ctx, req.JobID, StepAppendResult, err)
		}

		// The last accession's 100 is written together with DONE.
		if p := Progress(i+1, total); i < total-1 && p > progress {
			if err := r.store.UpdateProgress(ctx, req.JobID, p); err != nil {
				r.sink.Report(ctx, req.JobID, StepUpdateProgress, err)
			}
			progress = p
		}
	}

	if err := r.store.MarkDone(ctx, req.JobID); err != nil {
		r.sink.Report(ctx, req.JobID, StepMarkDone, err)
	}
	summary.Status = domain.JobStatusDone
	summary.FinishedAt = r.now().UTC()
	result = "done"

	span.SetAttributes(
		attribute.Int("job.hits", summary.Hits),
		attribute.Int("job.errors", summary.Errors),
	)
	span.SetStatus(codes.Ok, "done")
	logger.Info("job done",
		zap.Int("hits", summary.Hits),
		zap.Int("no_hits", summary.NoHits),
		zap.Int("timeouts", summary.Timeouts),
		zap.Int("errors", summary.Errors),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if r.notifier != nil {
		if err := r.notifier.NotifyCompleted(ctx, summary); err != nil {
			r.sink.Report(ctx, req.JobID, StepNotify, err)
		}
	}
	return summary, nil
}

func (r *Runner) loadJob(ctx context.Context, jobID string) (domain.Job, []domain.ResultRecord, error) {
	job, ok, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, nil, err
	}
	if !ok {
		return domain.Job{}, nil, store.ErrJobNotFound
	}
	rows, err := r.store.ListResults(ctx, jobID)
	if err != nil {
		return domain.Job{}, nil, fmt.Errorf("list results: %w", err)
	}
	return job, rows, nil
}

func (r *Runner) interrupted(logger *zap.Logger, span trace.Span, index int, err error) error {
	logger.Warn("job interrupted", zap.Int("index", index), zap.Error(err))
	span.SetStatus(codes.Error, "interrupted")
	return err
}

// processedAccessions marks the accessions that already have a result row.
// Rows are matched in order, so a repeated accession is only skipped as
// many times as it has rows.
func processedAccessions(accessions []string, rows []domain.ResultRecord) []bool {
	remaining := make(map[string]int, len(rows))
	for _, rec := range rows {
		remaining[rec.Accession]++
	}
	skip := make([]bool, len(accessions))
	for i, acc := range accessions {
		if remaining[acc] > 0 {
			remaining[acc]--
			skip[i] = true
		}
	}
	return skip
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
