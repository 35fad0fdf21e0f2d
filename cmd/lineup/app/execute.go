package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/internal/cmd/output"
)

// Execute runs the lineup CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "lineup",
		Short:   "Canonical event, venue and artist catalog",
		Version: a.version,
		Long: `Lineup scrapes events, venues and artists from many sources and links
every observation to one canonical record per real-world entity.

Curators review the changes sources report, merge duplicates, and move
events through the publish lifecycle.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	// Add global flags
	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.ConfigFile, "config", "", "config file (default is $HOME/.lineup.yaml)")
	f.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	f.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	f.BoolVar(&a.flags.NoColor, "no-color", false, "disable colored output")
	f.StringVarP(&a.flags.Format, "format", "o", "", "output format: table, json, yaml")
	f.StringVar(&a.flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	f.StringVar(&a.flags.Driver, "db-driver", "", "database driver: sqlite, postgres")
	f.StringVar(&a.flags.DSN, "dsn", "", "database connection string")

	if a.out != nil {
		rootCmd.SetOut(a.out)
	}

	rootCmd.SetVersionTemplate("lineup {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	base := a.loaded
	if a.flags.ConfigFile != "" {
		cfg, err := LoadConfig(a.flags.ConfigFile)
		if err != nil {
			return err
		}
		base = cfg
	}
	// flags apply to a copy of the loaded config
	cfg := *base
	applyFlags(&cfg, &a.flags)
	a.config = &cfg

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}
	if err := a.config.Validate(); err != nil {
		return err
	}

	logger := NewLogger(a.config, a.flags.LogLevel)
	a.logger = &logger
	return nil
}

// ExitOnError prints err and exits with status 1. A nil err is a no-op.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
