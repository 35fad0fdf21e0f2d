// Package syncjob provides the commands that run and inspect sync jobs.
package syncjob

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// AppContext defines what the sync commands need from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// Flags holds the sync command flags.
type Flags struct {
	Cities  []string
	Sources []string
	Enrich  bool
	Dedupe  bool
	Actor   string
}

// Options converts the flags into request options.
func (f *Flags) Options() []pkgsync.Option {
	opts := []pkgsync.Option{
		pkgsync.WithCities(f.Cities...),
		pkgsync.WithEnrich(f.Enrich),
		pkgsync.WithDedupe(f.Dedupe),
	}
	for _, s := range f.Sources {
		opts = append(opts, pkgsync.WithSources(types.SourceTag(s)))
	}
	if f.Actor != "" {
		opts = append(opts, pkgsync.WithActor(f.Actor))
	}
	return opts
}

// NewCommand creates the sync command.
func NewCommand(app AppContext) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Scrape sources and link what they report",
		Long: `Sync runs one sync job to completion:

1. Scrape - every source is scraped in every city, one city at a time
2. Match  - new observations are linked to canonical records or create them
3. Enrich - empty fields are derived from related records (--enrich)
4. Dedupe - duplicate canonical records are merged (--dedupe)

Only one sync job runs at a time across every process sharing the
database. A failing source is recorded and the job carries on.`,
		Example: `  lineup sync --city Berlin                       # All sources, one city
  lineup sync --city Berlin,Hamburg --source ra   # One source, two cities
  lineup sync --city Berlin --enrich --dedupe     # Every phase`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			logger := app.Logger()
			client.OnSyncProgress(func(job lineup.JobSnapshot) {
				logger.Info().
					Str("phase", string(job.Progress.Phase)).
					Str("city", job.Progress.City).
					Str("source", job.Progress.Source).
					Float64("percent", job.Progress.Percent).
					Msg("Sync progress")
			})

			if flags.Actor == "" {
				flags.Actor = os.Getenv("USER")
			}
			snap, err := client.RunSync(ctx, flags.Options()...)
			if err != nil && snap.ID == "" {
				return err
			}
			if perr := cmdutil.Print(cmd, app.OutputFormat(), snap, func() output.Data {
				return output.JobTable(snap)
			}); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&flags.Cities, "city", nil, "Cities to scrape, in order (comma-separated)")
	cmd.Flags().StringSliceVarP(&flags.Sources, "source", "s", nil, "Sources to scrape (default: every registered source)")
	cmd.Flags().BoolVar(&flags.Enrich, "enrich", true, "Run the enrich phase")
	cmd.Flags().BoolVar(&flags.Dedupe, "dedupe", false, "Run the dedupe phase")
	cmd.Flags().StringVar(&flags.Actor, "actor", "", "Who triggered the job (default: $USER)")
	_ = cmd.MarkFlagRequired("city")

	return cmd
}

// idle is printed by status when no job runs.
type idle struct {
	Status string `json:"status" yaml:"status"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "status [job-id]",
		GroupID: "core",
		Short:   "Show the running sync job, or one job by id",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				snap, err := client.Job(ctx, args[0])
				if err != nil {
					return err
				}
				return cmdutil.Print(cmd, app.OutputFormat(), snap, func() output.Data {
					return output.JobTable(snap)
				})
			}

			snap, err := client.SyncStatus(ctx)
			if err != nil {
				return err
			}
			if snap == nil {
				return cmdutil.Print(cmd, app.OutputFormat(), idle{Status: "idle"}, func() output.Data {
					return output.Data{Headers: []string{"Status"}, Rows: [][]string{{"idle"}}}
				})
			}
			return cmdutil.Print(cmd, app.OutputFormat(), snap, func() output.Data {
				return output.JobTable(*snap)
			})
		},
	}
}
