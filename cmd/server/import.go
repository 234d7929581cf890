package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskpick-api/internal/document"
	"github.com/yukikurage/taskpick-api/internal/repository"
)

func importDocumentCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import-document",
		Short: "Copy users and tasks from a JSON document file into the SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.UsesSQL() {
				return fmt.Errorf("import-document requires a SQL store driver, got %q", cfg.StoreDriver)
			}

			if _, err := os.Stat(file); err != nil {
				return fmt.Errorf("cannot read document %s: %w", file, err)
			}
			src, err := document.NewStore(file)
			if err != nil {
				return err
			}

			users, tasks, closeStore, err := openRepositories(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			stats, err := repository.ImportDocument(ctx, src, users, tasks)
			if err != nil {
				return err
			}

			slog.Info("document import completed",
				"file", file,
				"users", stats.Users,
				"tasks", stats.Tasks,
				"duplicate_emails", stats.DuplicateEmails,
				"duplicate_ids", stats.DuplicateIDs,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "data/db.json", "Path of the JSON document to import")
	return cmd
}
