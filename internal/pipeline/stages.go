package pipeline

import (
	"context"
	"fmt"

	"github.com/dunamismax/blastflow/internal/blast"
	"github.com/dunamismax/blastflow/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// processAccession runs fetch, submit, poll and result handling for one
// accession and always returns a complete result row.
func (r *Runner) processAccession(ctx context.Context, req Request, accession string) (record domain.ResultRecord) {
	base := domain.ResultRecord{JobID: req.JobID, Accession: accession}

	ctx, span := r.tracer.Start(ctx, "pipeline.accession", trace.WithAttributes(
		attribute.String("job.id", req.JobID),
		attribute.String("accession", accession),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			r.logger.Error("accession panicked", zap.String("job_id", req.JobID), zap.String("accession", accession), zap.Any("panic", p))
			record = errorRecord(base, err)
		}
		if record.TopHit == domain.OutcomeError {
			span.SetStatus(codes.Error, record.Species)
		}
	}()

	record, err := r.search(ctx, req, base)
	if err != nil {
		r.logger.Warn("accession failed",
			zap.String("job_id", req.JobID),
			zap.String("accession", accession),
			zap.Error(err),
		)
		span.RecordError(err)
		return errorRecord(base, err)
	}
	return record
}

func (r *Runner) search(ctx context.Context, req Request, base domain.ResultRecord) (domain.ResultRecord, error) {
	sequence, err := r.client.FetchSequence(ctx, base.Accession)
	if err != nil {
		return base, err
	}

	rid, err := r.client.Submit(ctx, sequence, req.TaxID())
	if err != nil {
		return base, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("blast.rid", rid))

	status, err := r.client.Poll(ctx, rid, req.Budget())
	if err != nil {
		return base, err
	}

	switch status {
	case blast.StatusReady:
		return r.collect(ctx, base, rid)
	case blast.StatusNoHits:
		return noHitRecord(base), nil
	case blast.StatusTimeout:
		return timeoutRecord(base), nil
	default:
		return notAvailableRecord(base), nil
	}
}

func (r *Runner) collect(ctx context.Context, base domain.ResultRecord, rid string) (domain.ResultRecord, error) {
	payload, err := r.client.FetchResult(ctx, rid)
	if err != nil {
		return base, err
	}

	hit, err := blast.ParseTopHit(payload)
	if err != nil {
		return base, err
	}

	gene := domain.OutcomeNA
	if hit.Accession != domain.OutcomeNA {
		gene = r.client.GeneSymbol(ctx, hit.Accession)
	}

	r.saveArtifact(ctx, base, payload)
	return hitRecord(base, hit, gene), nil
}
