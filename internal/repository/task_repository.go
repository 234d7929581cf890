package repository

import (
	"github.com/yukikurage/taskpick-api/internal/database"
	"github.com/yukikurage/taskpick-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create places the task after the owner's last task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&models.Task{}).
			Scopes(database.OwnedBy(task.UserID)).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		task.Position = last + 1
		return tx.Create(task).Error
	})
}

// FindByID finds a task by ID within one user's list
func (r *GormTaskRepository) FindByID(userID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.Scopes(database.OwnedBy(userID)).
		Where("id = ?", taskID).
		First(&task).Error; err != nil {
		return nil, translateError(err)
	}
	return &task, nil
}

// ListByUser returns the user's tasks in list order
func (r *GormTaskRepository) ListByUser(userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := r.db.Scopes(database.OwnedBy(userID), database.InListOrder).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update overwrites a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete removes a task; missing tasks are ignored
func (r *GormTaskRepository) Delete(userID, taskID string) error {
	return r.db.Scopes(database.OwnedBy(userID)).
		Where("id = ?", taskID).
		Delete(&models.Task{}).Error
}
