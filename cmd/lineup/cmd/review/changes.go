// Package review provides the commands curators use to review source
// changes and link records by hand.
package review

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/types"
)

// AppContext defines what the review commands need from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// NewChangesCommand creates the changes command and its subcommands.
func NewChangesCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "changes",
		GroupID: "core",
		Short:   "Review changes sources reported for linked records",
		Long: `When a source reports a new value for a field a curator owns, the
change is held back for review instead of overwriting the curated value.

  list     - raw records with pending changes
  show     - the field diff of one raw record
  apply    - copy the incoming values onto the canonical record
  dismiss  - keep the canonical values and hide the diff`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newChangesListCommand(app))
	cmd.AddCommand(newChangesShowCommand(app))
	cmd.AddCommand(newChangesApplyCommand(app))
	cmd.AddCommand(newChangesDismissCommand(app))

	return cmd
}

func newChangesListCommand(app AppContext) *cobra.Command {
	var kind string
	var page *cmdutil.PageFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List raw records with pending changes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k types.EntityType
			if kind != "" {
				var err error
				if k, err = cmdutil.ParseKind(kind); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			raws, total, err := client.ReviewQueue(ctx, k, page.Page())
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), raws, func() output.Data {
				return output.RawsTable(raws, total)
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "", "Entity type: event, venue, artist")
	page = cmdutil.AddPageFlags(cmd)

	return cmd
}

func newChangesShowCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <raw-id>",
		Short: "Show the pending field diff of a raw record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("raw-id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			cs, err := client.PendingChanges(ctx, id)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), cs, func() output.Data {
				return output.ChangesTable(cs)
			})
		},
	}
}

// applied reports an apply.
type applied struct {
	RawID  uint          `json:"raw_id" yaml:"raw_id"`
	Fields []types.Field `json:"fields" yaml:"fields"`
}

func newChangesApplyCommand(app AppContext) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "apply <raw-id>",
		Short: "Apply the pending changes of a raw record",
		Long: `Apply copies incoming values onto the canonical record and hands the
fields back to the source. Without --field every changed field is
applied; fields left out stay pending.`,
		Example: `  lineup changes apply 42                         # Every changed field
  lineup changes apply 42 --field title,date       # Two fields only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("raw-id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			var selected []types.Field
			if len(fields) > 0 {
				raw, err := client.GetRaw(ctx, id)
				if err != nil {
					return err
				}
				if selected, err = cmdutil.ParseFields(raw.EntityType, fields); err != nil {
					return err
				}
			}

			done, err := client.ApplyChanges(ctx, id, selected...)
			if err != nil {
				return err
			}
			app.Logger().Info().Uint("raw_id", id).Int("fields", len(done)).Msg("Changes applied")

			res := applied{RawID: id, Fields: done}
			return cmdutil.Print(cmd, app.OutputFormat(), res, func() output.Data {
				rows := make([][]string, 0, len(done))
				for _, f := range done {
					rows = append(rows, []string{string(f), "applied"})
				}
				return output.Data{Headers: []string{"Field", "Outcome"}, Rows: rows}
			})
		},
	}

	cmd.Flags().StringSliceVarP(&fields, "field", "f", nil, "Fields to apply (comma-separated)")

	return cmd
}

func newChangesDismissCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <raw-id>",
		Short: "Keep the canonical values and hide the diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("raw-id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			if err := client.DismissChanges(ctx, id); err != nil {
				return err
			}
			app.Logger().Info().Uint("raw_id", id).Msg("Changes dismissed")
			return nil
		},
	}
}
