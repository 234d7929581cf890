package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/dto"
	apierrors "github.com/yukikurage/taskpick-api/internal/errors"
	"github.com/yukikurage/taskpick-api/internal/middleware"
	"github.com/yukikurage/taskpick-api/internal/services"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

// TaskHandler serves the caller's task list.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns one page of the caller's tasks.
// Query: filter (comma separated statuses), search, sort, p (1-based page).
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	page, err := h.taskService.ListTasks(userID, services.TaskQuery{
		Filter: c.Query("filter"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Page:   utils.GetPage(c),
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(*page))
}

// CreateTask adds a task. The body is a partial task; unknown keys are stored as extra fields.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	fields, ok := bindTaskFields(c)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(userID, fields)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetTask returns a single task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	task, err := h.taskService.GetTask(userID, c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask merges the body into an existing task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	fields, ok := bindTaskFields(c)
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(userID, c.Param("id"), fields)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task. Unknown ids are not an error.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthenticated(c, "")
		return
	}

	if err := h.taskService.DeleteTask(userID, c.Param("id")); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bindTaskFields decodes a JSON object body. An empty body is an empty object.
func bindTaskFields(c *gin.Context) (services.TaskFields, bool) {
	fields := services.TaskFields{}
	if err := c.ShouldBindJSON(&fields); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequest(c, "Request body must be a JSON object")
		return nil, false
	}
	return fields, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrInvalidField):
		apierrors.BadRequest(c, err.Error())
	default:
		respondUnexpected(c, err)
	}
}
