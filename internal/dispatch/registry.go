package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("job is already running")
	ErrRegistryClosed = errors.New("registry is shut down")
)

// JobRunner executes one job to completion.
type JobRunner interface {
	Run(ctx context.Context, req pipeline.Request) (domain.JobSummary, error)
}

// Task is the handle of one in-process job run.
type Task struct {
	JobID string

	done    chan struct{}
	summary domain.JobSummary
	err     error
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result blocks until the run finishes.
func (t *Task) Result() (domain.JobSummary, error) {
	<-t.done
	return t.summary, t.err
}

// Registry runs jobs in background goroutines owned by the process rather
// than by the request that started them. At most maxActive runners execute
// at once; the rest wait for a slot.
type Registry struct {
	runner JobRunner
	logger *zap.Logger
	sem    chan struct{}

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
	wg     sync.WaitGroup
}

func NewRegistry(runner JobRunner, maxActive int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Registry{
		runner: runner,
		logger: logger.Named("dispatch"),
		sem:    make(chan struct{}, max(1, maxActive)),
		base:   base,
		cancel: cancel,
		tasks:  make(map[string]*Task),
	}
}

// Launch implements Launcher.
func (r *Registry) Launch(ctx context.Context, req pipeline.Request) error {
	_, err := r.Start(ctx, req)
	return err
}

// Start begins running req in the background and returns its handle. The
// run does not inherit ctx's cancellation, only its trace.
func (r *Registry) Start(ctx context.Context, req pipeline.Request) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, ok := r.tasks[req.JobID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, req.JobID)
	}

	task := &Task{JobID: req.JobID, done: make(chan struct{})}
	r.tasks[req.JobID] = task
	r.wg.Add(1)

	runCtx := trace.ContextWithSpanContext(r.base, trace.SpanContextFromContext(ctx))
	go r.run(runCtx, task, req)
	return task, nil
}

func (r *Registry) run(ctx context.Context, task *Task, req pipeline.Request) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.tasks, task.JobID)
		r.mu.Unlock()
		close(task.done)
	}()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		task.err = ctx.Err()
		r.logger.Warn("job dropped before start", zap.String("job_id", task.JobID), zap.Error(task.err))
		return
	}
	defer func() { <-r.sem }()

	task.summary, task.err = r.runner.Run(ctx, req)
	if task.err != nil {
		r.logger.Error("job run ended early", zap.String("job_id", task.JobID), zap.Error(task.err))
	}
}

// Active lists the IDs of jobs that are queued or running, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lookup returns the handle of a queued or running job.
func (r *Registry) lookup(jobID string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[jobID]
	return t, ok
}

// Wait blocks until every launched job has finished or ctx ends.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, the remaining runs are cancelled and left RUNNING in the store.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	if err := r.Wait(ctx); err != nil {
		active := r.Active()
		r.logger.Warn("cancelling unfinished jobs", zap.Strings("job_ids", active))
		r.cancel()
		r.wg.Wait()
		return fmt.Errorf("shutdown interrupted %d job(s): %w", len(active), err)
	}
	r.cancel()
	return nil
}
