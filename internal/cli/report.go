package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dunamismax/blastflow/internal/bootstrap"
	"github.com/dunamismax/blastflow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type JobsReportOptions struct {
	GlobalOptions
	Output string

	artifacts storage.ArtifactStore
}

func newCmdJobsReport() *cobra.Command {
	o := &JobsReportOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "report JOB_ID ACCESSION",
		Short:        "Print the raw BLAST XML stored for one accession of a job.",
		Args:         cobra.ExactArgs(2),
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsReportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Write to this file instead of stdout")
}

// Complete also opens the artifact store configured by ARTIFACT_BACKEND.
func (o *JobsReportOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.artifacts != nil {
		return nil
	}
	artifacts, err := bootstrap.OpenArtifacts(cmd.Context(), o.cfg.Storage, o.logger)
	if err != nil {
		return err
	}
	o.artifacts = artifacts
	return nil
}

func (o *JobsReportOptions) Run(ctx context.Context, args []string) error {
	job, err := o.job(ctx, args[0])
	if err != nil {
		return err
	}
	if o.artifacts == nil {
		return errors.New("artifact storage is disabled (ARTIFACT_BACKEND=none)")
	}

	accession := args[1]
	report, err := o.artifacts.LoadResult(ctx, job.ID, accession)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return fmt.Errorf("no report stored for %s in job %s", accession, job.ID)
		}
		return fmt.Errorf("loading report %s of %s: %w", accession, job.ID, err)
	}

	if o.Output == "" {
		_, err = o.out.Write(report)
		return err
	}
	if err := os.WriteFile(o.Output, report, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", o.Output, err)
	}
	o.printf("wrote report of %s to %s\n", accession, o.Output)
	return nil
}
