package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// Steps reported to a NonFatalSink.
const (
	StepLoadJob        = "load_job"
	StepMarkRunning    = "mark_running"
	StepUpdateProgress = "update_progress"
	StepAppendResult   = "append_result"
	StepMarkDone       = "mark_done"
	StepSaveArtifact   = "save_artifact"
	StepNotify         = "notify"
)

// NonFatalSink receives failures the runner swallows. It is separate from
// the per-accession outcomes, which only ever land in result rows.
type NonFatalSink interface {
	Report(ctx context.Context, jobID, step string, err error)
}

type LogSink struct {
	logger  *zap.Logger
	metrics *Metrics
}

func NewLogSink(logger *zap.Logger, metrics *Metrics) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, metrics: metrics}
}

func (s *LogSink) Report(_ context.Context, jobID, step string, err error) {
	s.logger.Warn("non-fatal pipeline failure",
		zap.String("job_id", jobID),
		zap.String("step", step),
		zap.Error(err),
	)
	s.metrics.nonFatal(step)
}
