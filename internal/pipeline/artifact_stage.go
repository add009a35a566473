package pipeline

import (
	"context"

	"github.com/dunamismax/blastflow/internal/domain"
)

// ArtifactSaver persists the raw XML report of a finished search.
type ArtifactSaver interface {
	SaveResult(ctx context.Context, jobID, accession string, payload []byte) error
}

func (r *Runner) saveArtifact(ctx context.Context, rec domain.ResultRecord, payload string) {
	if r.artifacts == nil {
		return
	}
	if err := r.artifacts.SaveResult(ctx, rec.JobID, rec.Accession, []byte(payload)); err != nil {
		r.sink.Report(ctx, rec.JobID, StepSaveArtifact, err)
	}
}
