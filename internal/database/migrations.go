package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/taskpick-api/internal/models"
	"gorm.io/gorm"
)

// EnsureIndexes adds the indexes the task list queries rely on
func EnsureIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns string
	}{
		{"idx_tasks_user_position", "user_id, position"},
		{"idx_tasks_user_status", "user_id, status"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "columns", idx.columns)
	}

	return nil
}
