package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dunamismax/blastflow/internal/bootstrap"
	"github.com/dunamismax/blastflow/internal/dispatch"
	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// JobsSubmitOptions runs a job inside the blastctl process and waits for
// it, which is handy for one-off searches without the api or a worker.
type JobsSubmitOptions struct {
	GlobalOptions
	Username       string
	Organism       string
	File           string
	TimeoutSeconds int

	newRunner func(jobs store.JobStore) (dispatch.JobRunner, error)
}

func newCmdJobsSubmit() *cobra.Command {
	o := &JobsSubmitOptions{
		GlobalOptions:  DefaultGlobalOptions(),
		Username:       "admin",
		Organism:       domain.DefaultOrganism,
		TimeoutSeconds: domain.DefaultTimeoutSeconds,
	}
	cmd := &cobra.Command{
		Use:          "submit [ACCESSION...]",
		Short:        "Run a BLAST job in process and wait for it to finish.",
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsSubmitOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.Username, "user", o.Username, "Owner of the job")
	fs.StringVar(&o.Organism, "organism", o.Organism, "Organism to restrict the search to: human or zebrafish")
	fs.StringVar(&o.File, "file", o.File, "Read newline separated accessions from this file")
	fs.IntVar(&o.TimeoutSeconds, "timeout", o.TimeoutSeconds, "Per-accession search budget in seconds, 0 for none")
}

func (o *JobsSubmitOptions) Validate(args []string) error {
	if len(args) == 0 && o.File == "" {
		return errors.New("give accessions as arguments or with --file")
	}
	if o.TimeoutSeconds < 0 {
		return errors.New("--timeout must not be negative")
	}
	return nil
}

func (o *JobsSubmitOptions) Run(ctx context.Context, args []string) error {
	req := domain.StartJobRequest{
		Accessions:     args,
		Organism:       o.Organism,
		TimeoutSeconds: &o.TimeoutSeconds,
	}
	if o.File != "" {
		raw, err := os.ReadFile(o.File)
		if err != nil {
			return fmt.Errorf("reading %s: %w", o.File, err)
		}
		req.AccessionsText = string(raw)
	}

	user, ok, err := o.store.GetUserByName(ctx, o.Username)
	if err != nil {
		return fmt.Errorf("looking up user %s: %w", o.Username, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", o.Username, store.ErrUserNotFound)
	}
	req.UserID = user.ID

	newRunner := o.newRunner
	if newRunner == nil {
		newRunner = o.defaultRunner
	}
	runner, err := newRunner(o.store)
	if err != nil {
		return fmt.Errorf("creating job runner: %w", err)
	}

	launcher := &taskLauncher{registry: dispatch.NewRegistry(runner, 1, o.logger)}
	defer func() { _ = launcher.registry.Shutdown(context.WithoutCancel(ctx)) }()

	jobID, err := dispatch.NewService(o.store, launcher, nil, o.logger).StartJob(ctx, req)
	if err != nil {
		return err
	}
	o.printf("started job %s\n", jobID)

	task := launcher.task
	select {
	case <-task.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	summary, err := task.Result()
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	o.printf("job %s done: %d accession(s), %d hit(s), %d without hits, %d timed out, %d error(s), %d not available\n",
		jobID, summary.Total, summary.Hits, summary.NoHits, summary.Timeouts, summary.Errors, summary.NotFound)
	return nil
}

func (o *JobsSubmitOptions) defaultRunner(jobs store.JobStore) (dispatch.JobRunner, error) {
	return bootstrap.NewRunner(bootstrap.RunnerDeps{
		Config: o.cfg,
		Jobs:   jobs,
		Logger: o.logger,
	}, nil)
}

// taskLauncher keeps the handle of the single job it starts.
type taskLauncher struct {
	registry *dispatch.Registry
	task     *dispatch.Task
}

func (l *taskLauncher) Launch(ctx context.Context, req pipeline.Request) error {
	task, err := l.registry.Start(ctx, req)
	if err != nil {
		return err
	}
	l.task = task
	return nil
}
