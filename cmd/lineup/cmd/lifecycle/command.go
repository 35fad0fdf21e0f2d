// Package lifecycle provides the event publish lifecycle commands.
package lifecycle

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// AppContext defines what the lifecycle commands need from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

func stateNames() string {
	names := make([]string, 0, len(types.EventStates()))
	for _, s := range types.EventStates() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// NewTransitionCommand creates the transition command.
func NewTransitionCommand(app AppContext) *cobra.Command {
	var actor *cmdutil.ActorFlags

	cmd := &cobra.Command{
		Use:     "transition <state> <event-id>...",
		GroupID: "core",
		Short:   "Move events to another publish state",
		Long: `Transition moves one or more events to <state>. Ids may be given as
separate arguments or comma-separated.

With several ids each event is transitioned on its own; one failure does
not stop the others.

States: ` + stateNames(),
		Example: `  lineup transition published 7
  lineup transition rejected 7,8,9 --reason "duplicate listing"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := cmdutil.ParseState(args[0])
			if err != nil {
				return err
			}
			ids, err := cmdutil.ParseIDs("event-id", args[1:])
			if err != nil {
				return err
			}
			who := actor.Who(os.Getenv)

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			if len(ids) == 1 {
				t, err := client.Transition(ctx, ids[0], to, who, actor.Reason)
				if err != nil {
					return err
				}
				return cmdutil.Print(cmd, app.OutputFormat(), t, func() output.Data {
					return output.TransitionsTable([]catalogs.StateTransition{*t})
				})
			}

			results, err := client.BulkTransition(ctx, ids, to, who, actor.Reason)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), results, func() output.Data {
				return output.BulkTable(results)
			})
		},
	}

	actor = cmdutil.AddActorFlags(cmd)

	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "history <event-id>",
		GroupID: "core",
		Short:   "Show the state transitions of an event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ParseID("event-id", args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			list, err := client.History(ctx, id)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), list, func() output.Data {
				return output.TransitionsTable(list)
			})
		},
	}
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "sweep",
		GroupID: "management",
		Short:   "Reject events whose start has passed",
		Long: `Sweep rejects every unfinished event whose start lies in the past.
Events without a start time expire at the end of their day; events
without a date never expire. The worker runs this on an interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			res, err := client.Sweep(ctx)
			if err != nil {
				return err
			}
			return cmdutil.Print(cmd, app.OutputFormat(), res, func() output.Data {
				return output.SweepTable(res)
			})
		},
	}
}
