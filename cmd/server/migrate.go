package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskpick-api/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesSQL() {
				return fmt.Errorf("migrate requires a SQL store driver, got %q", cfg.StoreDriver)
			}

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db)
		},
	}
}
