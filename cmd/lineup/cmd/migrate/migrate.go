// Package migrate provides the schema migration command.
package migrate

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/agentstation/lineup/internal/cmd/cmdutil"
	"github.com/agentstation/lineup/internal/cmd/output"
	"github.com/agentstation/lineup/internal/store"
)

// AppContext defines what the migrate command needs from the app.
type AppContext interface {
	DB(ctx context.Context) (*gorm.DB, error)
	OutputFormat() string
	Logger() *zerolog.Logger
}

// Result reports a migration run.
type Result struct {
	Applied []int `json:"applied" yaml:"applied"`
	Version int   `json:"version" yaml:"version"`
}

// NewCommand creates the migrate command.
func NewCommand(app AppContext) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Apply pending database migrations",
		Long: `Migrate applies every numbered schema migration the database has not
recorded yet. Each migration runs once, in order, inside a transaction.

Other commands migrate on first use; run this explicitly before starting
several workers against a new database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := app.DB(ctx)
			if err != nil {
				return err
			}
			applied, err := store.Migrate(ctx, db)
			if err != nil {
				return err
			}
			version, err := store.Version(ctx, db)
			if err != nil {
				return err
			}
			app.Logger().Info().Ints("applied", applied).Int("version", version).Msg("Schema up to date")

			res := Result{Applied: applied, Version: version}
			if res.Applied == nil {
				res.Applied = []int{}
			}
			return cmdutil.Print(cmd, app.OutputFormat(), res, func() output.Data {
				rows := make([][]string, 0, len(applied))
				for _, v := range applied {
					rows = append(rows, []string{strconv.Itoa(v), "applied"})
				}
				return output.Data{
					Headers: []string{"Version", "Status"},
					Rows:    rows,
					Footer:  "schema version " + strconv.Itoa(version),
				}
			})
		},
	}
}
