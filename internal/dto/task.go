package dto

import (
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/services"
)

// TaskListResponse represents one page of tasks
type TaskListResponse struct {
	PaginationAmount int           `json:"paginationAmount"`
	Tasks            []models.Task `json:"tasks"`
}

// ToTaskListResponse converts a query result to its response shape
func ToTaskListResponse(page services.TaskPage) TaskListResponse {
	tasks := page.Tasks
	if tasks == nil {
		tasks = []models.Task{}
	}
	return TaskListResponse{
		PaginationAmount: page.PaginationAmount,
		Tasks:            tasks,
	}
}

// AssistantRequest is the conversation sent to the assistant
type AssistantRequest struct {
	Messages []services.Message `json:"messages"`
}

// AssistantResponse is the assistant's pick
type AssistantResponse struct {
	AnswerText       string   `json:"answerText"`
	PickedTasksArray []string `json:"pickedTasksArray"`
}

// ToAssistantResponse converts a pick to its response shape
func ToAssistantResponse(pick services.Pick) AssistantResponse {
	picked := pick.PickedTasksArray
	if picked == nil {
		picked = []string{}
	}
	return AssistantResponse{
		AnswerText:       pick.AnswerText,
		PickedTasksArray: picked,
	}
}
