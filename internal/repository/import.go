package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/taskpick-api/internal/document"
)

// ImportStats summarizes an ImportDocument run.
type ImportStats struct {
	Users int
	Tasks int
	// Users left out because their email or id already exists in the target.
	DuplicateEmails int
	DuplicateIDs    int
}

// ImportDocument copies every user and task from a document store into the
// given repositories. Records without an id and users whose id or email already
// exists in the target are skipped; task order is preserved.
func ImportDocument(ctx context.Context, src *document.Store, users UserRepository, tasks TaskRepository) (ImportStats, error) {
	var stats ImportStats

	doc, err := src.Load(ctx)
	if err != nil {
		return stats, err
	}

	for _, rec := range doc {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if rec.ID == "" {
			continue
		}

		user := rec.ToUser()
		if err := users.Create(&user); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateID):
				slog.Warn("skipping user with existing id", slog.String("user_id", rec.ID))
				stats.DuplicateIDs++
				continue
			case errors.Is(err, ErrDuplicateEmail):
				slog.Warn("skipping user with existing email",
					slog.String("user_id", rec.ID),
					slog.String("email", rec.Email),
				)
				stats.DuplicateEmails++
				continue
			}
			return stats, fmt.Errorf("import user %s: %w", rec.ID, err)
		}
		stats.Users++

		for _, task := range rec.Tasks {
			if task.ID == "" {
				continue
			}
			task.UserID = user.ID
			if err := tasks.Create(&task); err != nil {
				return stats, fmt.Errorf("import task %s of user %s: %w", task.ID, rec.ID, err)
			}
			stats.Tasks++
		}
	}

	return stats, nil
}
