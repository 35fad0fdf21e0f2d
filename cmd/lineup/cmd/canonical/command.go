// Package canonical provides the curation commands for canonical records.
package canonical

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// AppContext defines what the canonical commands need from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// NewCommand creates the canonical command and its subcommands.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "canonical",
		Aliases: []string{"canon"},
		GroupID: "core",
		Short:   "Create, edit and inspect canonical records",
		Long: `Canonical records are the deduplicated events, venues and artists every
source record links to. Fields set by hand are owned by the curator and
are never overwritten by a sync.`,
		Example: `  lineup canonical list --type venue --city Berlin
  lineup canonical get event 7
  lineup canonical create venue --set name=Tresor --set city=Berlin
  lineup canonical update event 7 --set start_time=23:00
  lineup canonical delete artist 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newGetCommand(app))
	cmd.AddCommand(newCreateCommand(app))
	cmd.AddCommand(newUpdateCommand(app))
	cmd.AddCommand(newDeleteCommand(app))

	return cmd
}

func newListCommand(app AppContext) *cobra.Command {
	var kind, state, date string
	var page *cmdutil.PageFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List canonical records of one type",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := cmdutil.ParseKind(kind)
			if err != nil {
				return err
			}
			q := lineup.CanonicalQuery{
				EntityType:    k,
				City:          page.City,
				Search:        page.Search,
				Date:          date,
				PendingReview: cmdutil.OptionalBool(cmd, "pending"),
				Page:          page.Page(),
			}
			if state != "" {
				if q.State, err = cmdutil.ParseState(state); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			recs, total, err := client.ListCanonicals(ctx, q)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), recs, func() output.Data {
				return output.CanonicalsTable(recs, total)
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(types.EntityEvent), "Entity type: event, venue, artist")
	cmd.Flags().StringVar(&state, "state", "", "Filter events by state")
	cmd.Flags().StringVar(&date, "date", "", "Filter events by date (YYYY-MM-DD)")
	cmd.Flags().Bool("pending", false, "Only records with pending source changes (--pending=false for none)")
	page = cmdutil.AddPageFlags(cmd)

	return cmd
}

func newGetCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show a canonical record with field owners and links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseRef(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			detail, err := client.GetCanonical(ctx, kind, id)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), detail, func() output.Data {
				return output.CanonicalTable(detail.Record, detail.Links)
			})
		},
	}
}

func newCreateCommand(app AppContext) *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a canonical record by hand",
		Long: `Create adds a curated canonical record. Every field given with --set is
owned by the curator. Events start in MANUAL_DRAFT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cmdutil.ParseKind(args[0])
			if err != nil {
				return err
			}
			values, err := cmdutil.ParseValues(kind, set)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			rec, err := client.CreateCanonical(ctx, kind, values)
			if err != nil {
				return err
			}
			app.Logger().Info().Str("record", catalogs.Ref(rec)).Msg("Canonical record created")
			return printRecord(cmd, app, rec)
		},
	}

	cmd.Flags().StringArrayVar(&set, "set", nil, "Field value as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

func newUpdateCommand(app AppContext) *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "update <type> <id>",
		Short: "Edit fields of a canonical record",
		Long: `Update sets the given fields and makes the curator their owner. A
field set to an empty value is cleared.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseRef(args)
			if err != nil {
				return err
			}
			values, err := cmdutil.ParseValues(kind, set)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			rec, err := client.UpdateCanonical(ctx, kind, id, values)
			if err != nil {
				return err
			}
			return printRecord(cmd, app, rec)
		},
	}

	cmd.Flags().StringArrayVar(&set, "set", nil, "Field value as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

func newDeleteCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <type> <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a canonical record and unlink its source records",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseRef(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteCanonical(ctx, kind, id); err != nil {
				return err
			}
			app.Logger().Info().Str("type", string(kind)).Uint("id", id).Msg("Canonical record deleted")
			return nil
		},
	}
}

func parseRef(args []string) (types.EntityType, uint, error) {
	kind, err := cmdutil.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := cmdutil.ParseID("id", args[1])
	if err != nil {
		return "", 0, fmt.Errorf("%s id: %w", kind, err)
	}
	return kind, id, nil
}

func printRecord(cmd *cobra.Command, app AppContext, rec catalogs.Canonical) error {
	return cmdutil.Print(cmd, app.OutputFormat(), rec, func() output.Data {
		return output.CanonicalTable(rec, nil)
	})
}
