package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
)

type MemoryStore struct {
	mu           sync.RWMutex
	jobs         map[string]domain.Job
	results      []domain.ResultRecord
	nextResultID int64
	users        map[int64]domain.User
	nextUserID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]domain.Job),
		users: make(map[int64]domain.User),
	}
}

func (s *MemoryStore) CreateJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (domain.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false, nil
	}
	return s.withUsername(job), true, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !filter.All && job.UserID != filter.UserID {
			continue
		}
		out = append(out, s.withUsername(job))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, id)

	kept := s.results[:0]
	for _, r := range s.results {
		if r.JobID != id {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}

// MarkRunning leaves progress alone so a resumed run never moves it back.
func (s *MemoryStore) MarkRunning(_ context.Context, id string) error {
	return s.updateJob(id, func(job *domain.Job) {
		job.Status = domain.JobStatusRunning
	})
}

func (s *MemoryStore) UpdateProgress(_ context.Context, id string, progress int) error {
	return s.updateJob(id, func(job *domain.Job) {
		job.Progress = progress
	})
}

func (s *MemoryStore) MarkDone(_ context.Context, id string) error {
	return s.updateJob(id, func(job *domain.Job) {
		job.Status = domain.JobStatusDone
		job.Progress = 100
	})
}

func (s *MemoryStore) updateJob(id string, mutate func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	mutate(&job)
	s.jobs[id] = job
	return nil
}

// AppendResult does not require the job to exist: a runner whose job was
// deleted mid-flight keeps writing rows.
func (s *MemoryStore) AppendResult(_ context.Context, result domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextResultID++
	result.ID = s.nextResultID
	s.results = append(s.results, result)
	return nil
}

func (s *MemoryStore) ListResults(_ context.Context, jobID string) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ResultRecord
	for _, r := range s.results {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.User{}, ErrUserExists
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryStore) GetUserByName(_ context.Context, username string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	return user, ok, nil
}

func (s *MemoryStore) withUsername(job domain.Job) domain.Job {
	if user, ok := s.users[job.UserID]; ok {
		job.Username = user.Username
	}
	return job
}
