// Package raw provides the commands that inspect and purge source records.
package raw

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/types"
)

// AppContext defines what the raw commands need from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// NewCommand creates the raw command and its subcommands.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "raw",
		GroupID: "core",
		Short:   "Inspect source records as scraped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newGetCommand(app))
	cmd.AddCommand(newPurgeCommand(app))

	return cmd
}

func newListCommand(app AppContext) *cobra.Command {
	var kind, source string
	var dismissed bool
	var page *cmdutil.PageFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List source records",
		Example: `  lineup raw list --type venue --source ra
  lineup raw list --linked=false           # Not linked to any canonical record
  lineup raw list --changes --dismissed    # Every flagged record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := lineup.RawQuery{
				Source:           types.SourceTag(source),
				City:             page.City,
				Search:           page.Search,
				Linked:           cmdutil.OptionalBool(cmd, "linked"),
				HasChanges:       cmdutil.OptionalBool(cmd, "changes"),
				IncludeDismissed: dismissed,
				Page:             page.Page(),
			}
			if kind != "" {
				k, err := cmdutil.ParseKind(kind)
				if err != nil {
					return err
				}
				q.EntityType = k
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			raws, total, err := client.ListRaws(ctx, q)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), raws, func() output.Data {
				return output.RawsTable(raws, total)
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "", "Entity type: event, venue, artist")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Filter by source")
	cmd.Flags().Bool("linked", false, "Filter by link state")
	cmd.Flags().Bool("changes", false, "Filter by pending changes")
	cmd.Flags().BoolVar(&dismissed, "dismissed", false, "Include dismissed changes with --changes")
	page = cmdutil.AddPageFlags(cmd)

	return cmd
}

func newGetCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one source record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			raw, err := client.GetRaw(ctx, id)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), raw, func() output.Data {
				return output.RawTable(raw)
			})
		},
	}
}

func newPurgeCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <id>",
		Short: "Delete a source record and its link",
		Long: `Purge deletes a source record. When it was the primary source of its
canonical record another linked source is promoted. The canonical record
itself is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			if err := client.PurgeRaw(ctx, id); err != nil {
				return err
			}
			app.Logger().Info().Uint("raw_id", id).Msg("Raw record purged")
			return nil
		},
	}
}
