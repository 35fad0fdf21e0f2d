package syncjob

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
)

// NewJobCommand creates the job command and its subcommands.
func NewJobCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "job",
		GroupID: "management",
		Short:   "Inspect and recover sync jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newJobListCommand(app))
	cmd.AddCommand(newJobResetCommand(app))
	return cmd
}

func newJobListCommand(app AppContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent sync jobs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			list, err := client.Jobs(ctx, limit)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), list, func() output.Data {
				return output.JobsTable(list)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of jobs")
	return cmd
}

// resetResult reports a job reset.
type resetResult struct {
	Abandoned int64 `json:"abandoned" yaml:"abandoned"`
}

func newJobResetCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Force-release the sync lease and abandon running jobs",
		Long: `Reset recovers from a sync process that died while holding the sync
lease. It releases the lease whoever holds it and marks every running job
abandoned. Only run it when no sync process is alive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			n, err := client.ResetJob(ctx)
			if err != nil {
				return err
			}
			app.Logger().Warn().Int64("abandoned", n).Msg("Sync lease released")
			return cmdutil.Print(cmd, app.OutputFormat(), resetResult{Abandoned: n}, func() output.Data {
				return output.Data{
					Headers: []string{"Abandoned jobs"},
					Rows:    [][]string{{strconv.FormatInt(n, 10)}},
				}
			})
		},
	}
}
