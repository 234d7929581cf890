package repository

import (
	"errors"

	"github.com/yukikurage/taskpick-api/internal/models"
)

var (
	// ErrRecordNotFound is returned by every implementation when the requested row does not exist.
	ErrRecordNotFound = errors.New("repository: record not found")
	// ErrDuplicateEmail is returned when creating or updating a user would reuse an email.
	ErrDuplicateEmail = errors.New("repository: email already exists")
	// ErrDuplicateID is returned when creating a user whose id is already taken.
	ErrDuplicateID = errors.New("repository: user id already exists")
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create appends a task to the end of its owner's list
	Create(task *models.Task) error

	// FindByID finds a task by ID within one user's list
	FindByID(userID, taskID string) (*models.Task, error)

	// ListByUser returns every task owned by the user in list order
	ListByUser(userID string) ([]models.Task, error)

	// Update overwrites a task
	Update(task *models.Task) error

	// Delete removes a task; deleting a missing task is not an error
	Delete(userID, taskID string) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update overwrites a user's profile and capability fields
	Update(user *models.User) error

	// Delete removes a user together with all of their tasks
	Delete(id string) error
}
