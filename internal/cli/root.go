// Package cli implements the quarry command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// Logger returns the logger of the command, writing to its error stream.
func (o *RootOptions) Logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// NewRootCommand creates the root command of the quarry CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:           "quarry",
		Short:         "quarry - typed SQL queries and row mapping",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewVersionCommand())
	return cmd
}
