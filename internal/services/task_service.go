package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidField = errors.New("invalid task field")
)

// TaskFields is a partial task as sent by the caller: reserved keys plus any extra fields.
type TaskFields map[string]any

// TaskService handles task business logic
type TaskService struct {
	userRepo       repository.UserRepository
	taskRepo       repository.TaskRepository
	locks          *utils.KeyedMutex
	paginationMode string
	now            func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, locks *utils.KeyedMutex, paginationMode string) *TaskService {
	if paginationMode == "" {
		paginationMode = constants.PaginationCumulative
	}
	return &TaskService{
		userRepo:       userRepo,
		taskRepo:       taskRepo,
		locks:          locks,
		paginationMode: paginationMode,
		now:            time.Now,
	}
}

// ListTasks returns one page of the user's tasks
func (s *TaskService) ListTasks(userID string, query TaskQuery) (*TaskPage, error) {
	tasks, err := s.loadTasks(userID)
	if err != nil {
		return nil, err
	}

	if query.Mode == "" {
		query.Mode = s.paginationMode
	}
	page := QueryTasks(tasks, query)
	return &page, nil
}

// UnresolvedTasks returns the user's tasks that are still in the created status
func (s *TaskService) UnresolvedTasks(userID string) ([]models.Task, error) {
	tasks, err := s.loadTasks(userID)
	if err != nil {
		return nil, err
	}
	return UnresolvedTasks(tasks), nil
}

// GetTask returns a single task owned by the user
func (s *TaskService) GetTask(userID, taskID string) (*models.Task, error) {
	if _, err := findUser(s.userRepo, userID); err != nil {
		return nil, err
	}
	return s.findTask(userID, taskID)
}

// CreateTask appends a new task to the user's list.
// The id and creation time are always assigned here; every other field
// supplied by the caller overrides the defaults.
func (s *TaskService) CreateTask(userID string, fields TaskFields) (*models.Task, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := findUser(s.userRepo, userID); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.TaskStatusCreated,
		CreatedAt: s.timestamp(),
		UpdatedAt: "",
	}
	if err := applyFields(task, fields); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(task); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("create task", err)
	}
	return task, nil
}

// UpdateTask merges fields into an existing task. updatedAt is stamped
// with the current time unless the caller supplies a value for it.
func (s *TaskService) UpdateTask(userID, taskID string, fields TaskFields) (*models.Task, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := findUser(s.userRepo, userID); err != nil {
		return nil, err
	}
	task, err := s.findTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	if v, ok := fields[models.TaskFieldUpdatedAt]; !ok || v == nil {
		task.UpdatedAt = s.timestamp()
	}
	if err := applyFields(task, fields); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(task); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, persistenceError("update task", err)
	}
	return task, nil
}

// DeleteTask removes the task. Deleting a task that does not exist succeeds.
func (s *TaskService) DeleteTask(userID, taskID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := findUser(s.userRepo, userID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(userID, taskID); err != nil {
		return persistenceError("delete task", err)
	}
	return nil
}

func (s *TaskService) loadTasks(userID string) ([]models.Task, error) {
	if _, err := findUser(s.userRepo, userID); err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.ListByUser(userID)
	if err != nil {
		return nil, persistenceError("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) findTask(userID, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, persistenceError("find task", err)
	}
	return task, nil
}

func (s *TaskService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// applyFields overlays caller fields onto task. id and createdAt are never
// taken from the caller. Reserved fields must be strings, and null leaves them
// unchanged as it does in Task.UnmarshalJSON; extras are kept as sent.
func applyFields(task *models.Task, fields TaskFields) error {
	for key, value := range fields {
		switch key {
		case models.TaskFieldID, models.TaskFieldCreatedAt:
			continue
		}

		if !models.IsReservedTaskField(key) {
			if task.Extra == nil {
				task.Extra = make(map[string]any)
			}
			task.Extra[key] = value
			continue
		}

		if value == nil {
			continue
		}
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
		}

		switch key {
		case models.TaskFieldDescription:
			task.Description = str
		case models.TaskFieldPriority:
			priority := models.TaskPriority(str)
			if str != "" && !priority.Valid() {
				return fmt.Errorf("%w: priority must be one of %q, %q, %q", ErrInvalidField,
					models.PrioritySooner, models.PriorityLater, models.PriorityMaybeNever)
			}
			task.Priority = priority
		case models.TaskFieldStatus:
			if str == "" {
				return fmt.Errorf("%w: status cannot be empty", ErrInvalidField)
			}
			task.Status = models.TaskStatus(str)
		case models.TaskFieldUpdatedAt:
			task.UpdatedAt = str
		}
	}
	return nil
}
