package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewCmdJobs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage BLAST jobs.",
	}
	cmd.AddCommand(newCmdJobsList())
	cmd.AddCommand(newCmdJobsStatus())
	cmd.AddCommand(newCmdJobsExport())
	cmd.AddCommand(newCmdJobsReport())
	cmd.AddCommand(newCmdJobsDelete())
	cmd.AddCommand(newCmdJobsSubmit())
	return cmd
}

type JobsListOptions struct {
	GlobalOptions
	Username string
}

func newCmdJobsList() *cobra.Command {
	o := &JobsListOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List jobs, newest first.",
		Args:         cobra.NoArgs,
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsListOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.Username, "user", o.Username, "Only list jobs of this user")
}

func (o *JobsListOptions) Run(ctx context.Context, args []string) error {
	filter := store.JobFilter{All: true}
	if o.Username != "" {
		user, ok, err := o.store.GetUserByName(ctx, o.Username)
		if err != nil {
			return fmt.Errorf("looking up user %s: %w", o.Username, err)
		}
		if !ok {
			return fmt.Errorf("user %s: %w", o.Username, store.ErrUserNotFound)
		}
		filter = store.JobFilter{UserID: user.ID}
	}

	jobs, err := o.store.ListJobs(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	w := tabwriter.NewWriter(o.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tORGANISM\tSTATUS\tPROGRESS\tCREATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			job.ID, job.Username, job.Organism, job.Status, job.Progress, job.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

type JobsStatusOptions struct {
	GlobalOptions
}

func newCmdJobsStatus() *cobra.Command {
	o := &JobsStatusOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "status JOB_ID",
		Short:        "Show the progress and status of a job.",
		Args:         cobra.ExactArgs(1),
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsStatusOptions) Run(ctx context.Context, args []string) error {
	job, err := o.job(ctx, args[0])
	if err != nil {
		return err
	}
	o.printf("%s %s %d%%\n", job.ID, job.Status, job.Progress)
	return nil
}

type JobsDeleteOptions struct {
	GlobalOptions
}

func newCmdJobsDelete() *cobra.Command {
	o := &JobsDeleteOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "delete JOB_ID",
		Short:        "Delete a job and its results.",
		Args:         cobra.ExactArgs(1),
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsDeleteOptions) Run(ctx context.Context, args []string) error {
	if err := o.store.DeleteJob(ctx, args[0]); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return fmt.Errorf("job %s not found", args[0])
		}
		return fmt.Errorf("deleting job %s: %w", args[0], err)
	}
	o.printf("deleted job %s\n", args[0])
	return nil
}

func (o *GlobalOptions) job(ctx context.Context, jobID string) (domain.Job, error) {
	job, ok, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	if !ok {
		return domain.Job{}, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}
