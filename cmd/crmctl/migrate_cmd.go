package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newMigrateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return writeJSONLine(stdout(cmd), map[string]any{"status": "ok", "driver": db.DriverName()})
			})
		},
	}
}
