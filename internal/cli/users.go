package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dunamismax/blastflow/internal/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewCmdUsers() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts.",
	}
	cmd.AddCommand(newCmdUsersCreate())
	cmd.AddCommand(newCmdUsersSeedAdmin())
	return cmd
}

type UsersCreateOptions struct {
	GlobalOptions
	Password string
}

func newCmdUsersCreate() *cobra.Command {
	o := &UsersCreateOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "create USERNAME",
		Short:        "Create a regular user.",
		Args:         cobra.ExactArgs(1),
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *UsersCreateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Password, "password", "p", o.Password, "Password of the new user")
}

func (o *UsersCreateOptions) Validate(args []string) error {
	if o.Password == "" {
		return errors.New("--password is required")
	}
	return nil
}

func (o *UsersCreateOptions) Run(ctx context.Context, args []string) error {
	user, err := auth.NewService(o.store, o.logger).Register(ctx, args[0], o.Password)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", args[0], err)
	}
	o.printf("created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

type UsersSeedAdminOptions struct {
	GlobalOptions
	Password string
}

func newCmdUsersSeedAdmin() *cobra.Command {
	o := &UsersSeedAdminOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:          "seed-admin",
		Short:        "Create the admin account if it does not exist.",
		Args:         cobra.NoArgs,
		RunE:         runE(o),
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *UsersSeedAdminOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVarP(&o.Password, "password", "p", o.Password, "Admin password (defaults to BLASTFLOW_ADMIN_PASSWORD)")
}

func (o *UsersSeedAdminOptions) Run(ctx context.Context, args []string) error {
	password := o.Password
	if password == "" {
		password = o.cfg.API.AdminPassword
	}
	if password == "" {
		return errors.New("an admin password is required")
	}

	created, err := auth.NewService(o.store, o.logger).EnsureAdmin(ctx, password)
	if err != nil {
		return err
	}
	if created {
		o.printf("created user %s\n", auth.AdminUsername)
	} else {
		o.printf("user %s already exists\n", auth.AdminUsername)
	}
	return nil
}
