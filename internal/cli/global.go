package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dunamismax/blastflow/internal/bootstrap"
	"github.com/dunamismax/blastflow/internal/config"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/dunamismax/blastflow/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// GlobalOptions are shared by every blastctl command. Configuration comes
// from the same environment the services read; --dsn overrides the store.
type GlobalOptions struct {
	DSN      string
	LogLevel string

	cfg    config.Config
	logger *zap.Logger
	store  store.Store
	close  func() error
	out    io.Writer
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		LogLevel: "warn",
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.DSN, "dsn", o.DSN, "Postgres DSN of the job store (defaults to POSTGRES_DSN)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if o.out == nil {
		o.out = cmd.OutOrStdout()
	}
	if o.store != nil {
		if o.logger == nil {
			o.logger = zap.NewNop()
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
	o.cfg = cfg

	logger, err := telemetry.NewLogger(o.LogLevel, cfg.Log.Format)
	if err != nil {
		return err
	}
	o.logger = logger.Named("blastctl")

	s, closeFn, err := bootstrap.OpenStore(cmd.Context(), cfg.Database, o.logger)
	if err != nil {
		return err
	}
	o.store = s
	o.close = closeFn
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

// Close releases the store opened by Complete.
func (o *GlobalOptions) Close() {
	if o.close != nil {
		if err := o.close(); err != nil {
			o.logger.Warn("close store", zap.Error(err))
		}
	}
	if o.logger != nil {
		_ = o.logger.Sync()
	}
}

func (o *GlobalOptions) printf(format string, a ...any) {
	fmt.Fprintf(o.out, format, a...)
}

// lifecycle is the Complete/Validate/Run sequence every command follows.
type lifecycle interface {
	Complete(cmd *cobra.Command, args []string) error
	Validate(args []string) error
	Run(ctx context.Context, args []string) error
	Close()
}

func runE(o lifecycle) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := o.Complete(cmd, args); err != nil {
			return err
		}
		defer o.Close()
		if err := o.Validate(args); err != nil {
			return err
		}
		return o.Run(cmd.Context(), args)
	}
}
