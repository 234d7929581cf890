package services

import (
	"sort"
	"strings"
	"time"

	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

// Sort modes accepted by the task list
const (
	SortPriorityAsc  = "priorityAsc"
	SortPriorityDesc = "priorityDesc"
	SortDateAsc      = "dateAsc"
	SortDateDesc     = "dateDesc"
)

// TaskQuery holds the raw list query parameters
type TaskQuery struct {
	Filter string
	Search string
	Sort   string
	Page   int
	// Mode is constants.PaginationCumulative or constants.PaginationWindow
	Mode string
}

// TaskPage is one page of a filtered, sorted task list
type TaskPage struct {
	Tasks            []models.Task
	PaginationAmount int
}

// QueryTasks filters, searches, sorts and paginates tasks without modifying the input.
func QueryTasks(tasks []models.Task, q TaskQuery) TaskPage {
	result := filterByStatus(tasks, ParseStatusFilter(q.Filter))
	result = searchDescription(result, q.Search)
	sortTasks(result, q.Sort)

	bounds := utils.Bounds(len(result), q.Page, constants.TaskPageSize, q.Mode)
	return TaskPage{
		Tasks:            result[bounds.Start:bounds.End],
		PaginationAmount: utils.PageCount(len(result), constants.TaskPageSize),
	}
}

// ParseStatusFilter splits a comma separated status list. Empty input means created only.
func ParseStatusFilter(raw string) map[models.TaskStatus]struct{} {
	accepted := make(map[models.TaskStatus]struct{})
	for _, part := range strings.Split(raw, constants.StatusSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		accepted[models.TaskStatus(part)] = struct{}{}
	}
	if len(accepted) == 0 {
		accepted[constants.DefaultStatus] = struct{}{}
	}
	return accepted
}

// UnresolvedTasks returns the tasks still in the created status
func UnresolvedTasks(tasks []models.Task) []models.Task {
	return filterByStatus(tasks, map[models.TaskStatus]struct{}{models.TaskStatusCreated: {}})
}

func filterByStatus(tasks []models.Task, accepted map[models.TaskStatus]struct{}) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := accepted[t.Status]; ok {
			out = append(out, t)
		}
	}
	return out
}

func searchDescription(tasks []models.Task, search string) []models.Task {
	if search == "" {
		return tasks
	}
	needle := strings.ToLower(search)
	out := tasks[:0]
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

func sortTasks(tasks []models.Task, mode string) {
	switch mode {
	case SortPriorityAsc:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		})
	case SortPriorityDesc:
		// Unknown priorities rank last in both directions.
		sort.SliceStable(tasks, func(i, j int) bool {
			return descRank(tasks[i].Priority) < descRank(tasks[j].Priority)
		})
	case SortDateAsc:
		sort.SliceStable(tasks, func(i, j int) bool {
			return createdAt(tasks[i]).Before(createdAt(tasks[j]))
		})
	case SortDateDesc:
		sort.SliceStable(tasks, func(i, j int) bool {
			return createdAt(tasks[i]).After(createdAt(tasks[j]))
		})
	}
}

func descRank(p models.TaskPriority) int {
	if !p.Valid() {
		return p.Rank()
	}
	return 2 - p.Rank()
}

// createdAt parses the creation stamp; unparseable values sort as the zero time.
func createdAt(t models.Task) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}
