package main

import (
	"github.com/spf13/cobra"

	"github.com/yukikurage/project-board-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.Migrate(db, logger)
	},
}
