package review

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// NewLinkCommand creates the link command.
func NewLinkCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "link <type> <canonical-id> <source> <source-id>",
		GroupID: "core",
		Short:   "Link a source record to a canonical record by hand",
		Long: `Link attaches the record a source knows by <source-id> to a canonical
record with full confidence. The source record need not have been scraped
yet; it is created empty and filled by the next sync.

A source record is linked to at most one canonical record.`,
		Example: `  lineup link venue 12 ra 4711`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cmdutil.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := cmdutil.ParseID("canonical-id", args[1])
			if err != nil {
				return err
			}
			source := types.SourceTag(args[2])

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			link, err := client.ManualLink(ctx, kind, id, source, args[3])
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), link, func() output.Data {
				return linkTable(link)
			})
		},
	}
}

func linkTable(l *catalogs.Link) output.Data {
	return output.Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"raw", fmt.Sprintf("%d (%s)", l.RawID, l.Source)},
			{"canonical", fmt.Sprintf("%s %d", l.EntityType, l.CanonicalID)},
			{"confidence", fmt.Sprintf("%.2f", l.Confidence)},
			{"primary", fmt.Sprintf("%t", l.IsPrimary)},
		},
	}
}
