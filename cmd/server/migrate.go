package main

import (
	"github.com/spf13/cobra"
	"github.com/vedran77/arena/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		pool, err := database.Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		return database.Migrate(cmd.Context(), pool, logger)
	},
}
