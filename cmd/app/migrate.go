package main

import (
	"planpass/internal/db"
	"planpass/internal/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
			return err
		}

		logger.Info("migrations completed", "path", cfg.MigrationsPath)
		return nil
	},
}
