package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/id"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/storage"
	"github.com/dunamismax/blastflow/internal/store"
	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("invalid job request")

// Launcher hands a created job to something that will run it.
type Launcher interface {
	Launch(ctx context.Context, req pipeline.Request) error
}

type Service struct {
	jobs      store.JobStore
	launcher  Launcher
	artifacts storage.ArtifactStore
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

// NewService wires the job operations. artifacts may be nil.
func NewService(jobs store.JobStore, launcher Launcher, artifacts storage.ArtifactStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:      jobs,
		launcher:  launcher,
		artifacts: artifacts,
		logger:    logger.Named("dispatch"),
		newID:     id.New,
		now:       time.Now,
	}
}

// StartJob records a new RUNNING job and launches it. It returns as soon
// as the job is handed off.
func (s *Service) StartJob(ctx context.Context, req domain.StartJobRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	job := domain.Job{
		ID:        s.newID(),
		UserID:    req.UserID,
		Organism:  domain.NormalizeOrganism(req.Organism),
		Progress:  0,
		Status:    domain.JobStatusRunning,
		CreatedAt: s.now().UTC(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	run := pipeline.Request{
		JobID:          job.ID,
		UserID:         job.UserID,
		Organism:       job.Organism,
		Accessions:     req.AllAccessions(),
		TimeoutSeconds: req.Timeout(),
	}
	if err := s.launcher.Launch(ctx, run); err != nil {
		if delErr := s.jobs.DeleteJob(context.WithoutCancel(ctx), job.ID); delErr != nil {
			s.logger.Warn("remove unlaunched job", zap.String("job_id", job.ID), zap.Error(delErr))
		}
		return "", fmt.Errorf("launch job: %w", err)
	}

	s.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.Int64("user_id", job.UserID),
		zap.Int("accessions", len(run.Accessions)),
		zap.String("organism", job.Organism),
		zap.Int("timeout_seconds", run.TimeoutSeconds),
	)
	return job.ID, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	job, ok, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, store.ErrJobNotFound
	}
	return job, nil
}

func (s *Service) JobStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	return domain.JobStatus{Progress: job.Progress, Status: job.Status}, nil
}

// JobResults returns the job's rows in insertion order.
func (s *Service) JobResults(ctx context.Context, jobID string) ([]domain.ResultRecord, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.ListResults(ctx, jobID)
}

// JobReport returns the raw BLAST XML stored for one of the job's
// accessions. Only accessions with a hit have a report.
func (s *Service) JobReport(ctx context.Context, jobID, accession string) ([]byte, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if s.artifacts == nil {
		return nil, storage.ErrArtifactNotFound
	}
	return s.artifacts.LoadResult(ctx, jobID, accession)
}

func (s *Service) ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.Job, error) {
	return s.jobs.ListJobs(ctx, filter)
}

// DeleteJob removes the job, its rows and its stored reports. A runner
// still working on the job is not stopped.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	if s.artifacts != nil {
		if err := s.artifacts.RemoveJob(ctx, jobID); err != nil {
			s.logger.Warn("remove job artifacts", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	s.logger.Info("job deleted", zap.String("job_id", jobID))
	return nil
}
