package syncjob

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/types"
)

// NewDedupeCommand creates the dedupe command.
func NewDedupeCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "dedupe [type...]",
		GroupID: "core",
		Short:   "Merge duplicate canonical records",
		Long: `Dedupe compares canonical records pairwise within each city and merges
pairs that score above the dedupe threshold. The more complete record
survives; links and references move to it.

Without arguments every entity type is deduplicated. Dedupe holds the
sync lease, so it never runs while a sync job does.`,
		Example: `  lineup dedupe              # Every type
  lineup dedupe venue artist # Venues and artists only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]types.EntityType, 0, len(args))
			for _, a := range args {
				if a == "all" {
					kinds = nil
					break
				}
				k, err := cmdutil.ParseKind(a)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			stats, err := client.Dedupe(ctx, kinds...)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), stats, func() output.Data {
				return output.DedupeTable(stats)
			})
		},
	}
}
