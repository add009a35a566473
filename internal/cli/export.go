package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dunamismax/blastflow/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type JobsExportOptions struct {
	GlobalOptions
	Format string
	Output string
}

func newCmdJobsExport() *cobra.Command {
	o := &JobsExportOptions{GlobalOptions: DefaultGlobalOptions(), Format: "csv"}
	cmd := &cobra.Command{
		Use:          "export JOB_ID",
		Short:        "Export the results of a job as CSV or XLSX.",
		Args:         cobra.ExactArgs(1),
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *JobsExportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Format, "format", "f", o.Format, "Output format: csv or xlsx")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Write to this file instead of stdout")
}

func (o *JobsExportOptions) Validate(args []string) error {
	switch o.Format {
	case "csv":
	case "xlsx":
		if o.Output == "" {
			return fmt.Errorf("--output is required for xlsx")
		}
	default:
		return fmt.Errorf("unsupported format %q", o.Format)
	}
	return nil
}

func (o *JobsExportOptions) Run(ctx context.Context, args []string) error {
	job, err := o.job(ctx, args[0])
	if err != nil {
		return err
	}
	results, err := o.store.ListResults(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("loading results of %s: %w", job.ID, err)
	}

	var w io.Writer = o.out
	if o.Output != "" {
		f, err := os.Create(o.Output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", o.Output, err)
		}
		defer f.Close()
		w = f
	}

	if o.Format == "xlsx" {
		err = export.WriteXLSX(w, results)
	} else {
		err = export.WriteCSV(w, results)
	}
	if err != nil {
		return fmt.Errorf("exporting %s: %w", job.ID, err)
	}
	if o.Output != "" {
		o.printf("wrote %d result(s) to %s\n", len(results), o.Output)
	}
	return nil
}
