package store

import (
	"context"
	"errors"

	"github.com/dunamismax/blastflow/internal/domain"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrUserExists   = errors.New("username already exists")
	ErrUserNotFound = errors.New("user not found")
)

// JobFilter selects jobs for listing. All overrides UserID.
type JobFilter struct {
	UserID int64
	All    bool
}

type JobStore interface {
	CreateJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, id string) (domain.Job, bool, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error)
	DeleteJob(ctx context.Context, id string) error

	// MarkRunning sets the RUNNING status without touching progress.
	MarkRunning(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkDone(ctx context.Context, id string) error

	AppendResult(ctx context.Context, result domain.ResultRecord) error
	ListResults(ctx context.Context, jobID string) ([]domain.ResultRecord, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUserByName(ctx context.Context, username string) (domain.User, bool, error)
	GetUser(ctx context.Context, id int64) (domain.User, bool, error)
}

// Store is a backend holding both jobs and users.
type Store interface {
	JobStore
	UserStore
}
