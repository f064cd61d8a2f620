package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autofilter/internal/logger"
	"autofilter/internal/repository"
)

// migrateCmd applies the index migrations and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MongoDB indexes the bot relies on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, _, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer func() {
			_ = log.Sync()
		}()

		return repository.MigrateDB(cfg.Database.URI, cfg.Database.Name, cfg.Database.MigrationsPath, log)
	},
}
