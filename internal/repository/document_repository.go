package repository

import (
	"context"

	"github.com/yukikurage/taskpick-api/internal/document"
	"github.com/yukikurage/taskpick-api/internal/models"
)

// DocumentUserRepository stores users in the flat JSON document
type DocumentUserRepository struct {
	store *document.Store
}

// NewDocumentUserRepository creates a UserRepository backed by store
func NewDocumentUserRepository(store *document.Store) UserRepository {
	return &DocumentUserRepository{store: store}
}

// Create appends a new user record
func (r *DocumentUserRepository) Create(user *models.User) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		if doc.FindUser(user.ID) >= 0 {
			return ErrDuplicateID
		}
		if doc.FindEmail(user.Email) >= 0 {
			return ErrDuplicateEmail
		}
		var rec document.UserRecord
		rec.ApplyUser(*user)
		rec.Tasks = []models.Task{}
		*doc = append(*doc, rec)
		return nil
	})
}

// FindByID finds a user by ID
func (r *DocumentUserRepository) FindByID(id string) (*models.User, error) {
	var user *models.User
	err := r.store.View(context.Background(), func(doc document.Document) error {
		idx := doc.FindUser(id)
		if idx < 0 {
			return ErrRecordNotFound
		}
		u := doc[idx].ToUser()
		user = &u
		return nil
	})
	return user, err
}

// FindByEmail finds a user by email
func (r *DocumentUserRepository) FindByEmail(email string) (*models.User, error) {
	var user *models.User
	err := r.store.View(context.Background(), func(doc document.Document) error {
		idx := doc.FindEmail(email)
		if idx < 0 {
			return ErrRecordNotFound
		}
		u := doc[idx].ToUser()
		user = &u
		return nil
	})
	return user, err
}

// Update overwrites a user's profile fields, keeping their tasks
func (r *DocumentUserRepository) Update(user *models.User) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		idx := doc.FindUser(user.ID)
		if idx < 0 {
			return ErrRecordNotFound
		}
		if other := doc.FindEmail(user.Email); other >= 0 && other != idx {
			return ErrDuplicateEmail
		}
		(*doc)[idx].ApplyUser(*user)
		return nil
	})
}

// Delete removes the user record and, with it, the user's tasks
func (r *DocumentUserRepository) Delete(id string) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		idx := doc.FindUser(id)
		if idx < 0 {
			return ErrRecordNotFound
		}
		*doc = append((*doc)[:idx], (*doc)[idx+1:]...)
		return nil
	})
}

// DocumentTaskRepository stores tasks nested under their owner in the flat JSON document
type DocumentTaskRepository struct {
	store *document.Store
}

// NewDocumentTaskRepository creates a TaskRepository backed by store
func NewDocumentTaskRepository(store *document.Store) TaskRepository {
	return &DocumentTaskRepository{store: store}
}

// Create appends the task to its owner's list
func (r *DocumentTaskRepository) Create(task *models.Task) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		idx := doc.FindUser(task.UserID)
		if idx < 0 {
			return ErrRecordNotFound
		}
		rec := &(*doc)[idx]
		task.Position = int64(len(rec.Tasks) + 1)
		rec.Tasks = append(rec.Tasks, *task)
		return nil
	})
}

// FindByID finds a task by ID within one user's list
func (r *DocumentTaskRepository) FindByID(userID, taskID string) (*models.Task, error) {
	var task *models.Task
	err := r.store.View(context.Background(), func(doc document.Document) error {
		idx := doc.FindUser(userID)
		if idx < 0 {
			return ErrRecordNotFound
		}
		pos := findTask(doc[idx].Tasks, taskID)
		if pos < 0 {
			return ErrRecordNotFound
		}
		t := doc[idx].Tasks[pos]
		task = &t
		return nil
	})
	return task, err
}

// ListByUser returns the user's tasks in document order
func (r *DocumentTaskRepository) ListByUser(userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := r.store.View(context.Background(), func(doc document.Document) error {
		idx := doc.FindUser(userID)
		if idx < 0 {
			return nil
		}
		tasks = append(tasks, doc[idx].Tasks...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update overwrites the task in place
func (r *DocumentTaskRepository) Update(task *models.Task) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		idx := doc.FindUser(task.UserID)
		if idx < 0 {
			return ErrRecordNotFound
		}
		pos := findTask((*doc)[idx].Tasks, task.ID)
		if pos < 0 {
			return ErrRecordNotFound
		}
		(*doc)[idx].Tasks[pos] = *task
		return nil
	})
}

// Delete removes the task if present
func (r *DocumentTaskRepository) Delete(userID, taskID string) error {
	return r.store.Update(context.Background(), func(doc *document.Document) error {
		idx := doc.FindUser(userID)
		if idx < 0 {
			return nil
		}
		rec := &(*doc)[idx]
		if pos := findTask(rec.Tasks, taskID); pos >= 0 {
			rec.Tasks = append(rec.Tasks[:pos], rec.Tasks[pos+1:]...)
		}
		return nil
	})
}

func findTask(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
