package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/cmd/lineup/cmd/canonical"
	"github.com/agentstation/lineup/cmd/lineup/cmd/lifecycle"
	"github.com/agentstation/lineup/cmd/lineup/cmd/migrate"
	"github.com/agentstation/lineup/cmd/lineup/cmd/raw"
	"github.com/agentstation/lineup/cmd/lineup/cmd/review"
	"github.com/agentstation/lineup/cmd/lineup/cmd/syncjob"
	"github.com/agentstation/lineup/cmd/lineup/cmd/worker"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(syncjob.NewCommand(a))
	rootCmd.AddCommand(syncjob.NewStatusCommand(a))
	rootCmd.AddCommand(syncjob.NewDedupeCommand(a))
	rootCmd.AddCommand(review.NewChangesCommand(a))
	rootCmd.AddCommand(review.NewLinkCommand(a))
	rootCmd.AddCommand(canonical.NewCommand(a))
	rootCmd.AddCommand(raw.NewCommand(a))
	rootCmd.AddCommand(lifecycle.NewTransitionCommand(a))
	rootCmd.AddCommand(lifecycle.NewHistoryCommand(a))

	// Management commands
	rootCmd.AddCommand(migrate.NewCommand(a))
	rootCmd.AddCommand(syncjob.NewJobCommand(a))
	rootCmd.AddCommand(lifecycle.NewSweepCommand(a))
	rootCmd.AddCommand(worker.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("lineup %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
