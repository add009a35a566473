package main

import (
	"os"

	"github.com/dunamismax/blastflow/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewBlastCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewBlastCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blastctl [flags] [options]",
		Short: "blastctl manages blastflow users and jobs.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdUsers())
	cmd.AddCommand(cli.NewCmdJobs())
	return cmd
}
