package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/models"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

func task(id string, status models.TaskStatus, priority models.TaskPriority) models.Task {
	return models.Task{ID: id, Status: status, Priority: priority, Description: "task " + id}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestQueryTasks_DefaultFilterKeepsCreated(t *testing.T) {
	tasks := []models.Task{
		task("a", models.TaskStatusCreated, ""),
		task("b", models.TaskStatusDone, ""),
		task("c", models.TaskStatusCreated, ""),
	}

	page := QueryTasks(tasks, TaskQuery{})

	assert.Equal(t, []string{"a", "c"}, ids(page.Tasks))
	assert.Equal(t, 1, page.PaginationAmount)
}

func TestQueryTasks_StatusFilterList(t *testing.T) {
	tasks := []models.Task{
		task("a", models.TaskStatusCreated, ""),
		task("b", models.TaskStatusDone, ""),
		task("c", models.TaskStatusArchived, ""),
	}

	page := QueryTasks(tasks, TaskQuery{Filter: " done , archived ,"})
	assert.Equal(t, []string{"b", "c"}, ids(page.Tasks))

	page = QueryTasks(tasks, TaskQuery{Filter: " , "})
	assert.Equal(t, []string{"a"}, ids(page.Tasks))
}

func TestQueryTasks_SearchIsCaseInsensitive(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", Status: models.TaskStatusCreated, Description: "Buy MILK"},
		{ID: "b", Status: models.TaskStatusCreated, Description: "walk the dog"},
		{ID: "c", Status: models.TaskStatusDone, Description: "milk the cow"},
	}

	page := QueryTasks(tasks, TaskQuery{Search: "milk"})

	assert.Equal(t, []string{"a"}, ids(page.Tasks))
}

func TestQueryTasks_PrioritySortIsStable(t *testing.T) {
	tasks := []models.Task{
		task("l1", models.TaskStatusCreated, models.PriorityLater),
		task("m1", models.TaskStatusCreated, models.PriorityMaybeNever),
		task("s1", models.TaskStatusCreated, models.PrioritySooner),
		task("l2", models.TaskStatusCreated, models.PriorityLater),
		task("x1", models.TaskStatusCreated, ""),
		task("s2", models.TaskStatusCreated, models.PrioritySooner),
	}

	asc := QueryTasks(tasks, TaskQuery{Sort: SortPriorityAsc})
	assert.Equal(t, []string{"s1", "s2", "l1", "l2", "m1", "x1"}, ids(asc.Tasks))

	desc := QueryTasks(tasks, TaskQuery{Sort: SortPriorityDesc})
	assert.Equal(t, []string{"m1", "l1", "l2", "s1", "s2", "x1"}, ids(desc.Tasks))
}

func TestQueryTasks_DateSortIsChronological(t *testing.T) {
	tasks := []models.Task{
		{ID: "b", Status: models.TaskStatusCreated, CreatedAt: "2024-01-02T00:00:00Z"},
		// lexically larger, chronologically earlier
		{ID: "a", Status: models.TaskStatusCreated, CreatedAt: "2024-01-02T09:00:00+10:00"},
		{ID: "c", Status: models.TaskStatusCreated, CreatedAt: "2024-03-01T00:00:00.123Z"},
		{ID: "z", Status: models.TaskStatusCreated, CreatedAt: "not a date"},
	}

	asc := QueryTasks(tasks, TaskQuery{Sort: SortDateAsc})
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids(asc.Tasks))

	desc := QueryTasks(tasks, TaskQuery{Sort: SortDateDesc})
	assert.Equal(t, []string{"c", "b", "a", "z"}, ids(desc.Tasks))
}

func TestQueryTasks_UnknownSortKeepsOrder(t *testing.T) {
	tasks := []models.Task{
		task("b", models.TaskStatusCreated, models.PriorityLater),
		task("a", models.TaskStatusCreated, models.PrioritySooner),
	}

	page := QueryTasks(tasks, TaskQuery{Sort: "alphabetical"})

	assert.Equal(t, []string{"b", "a"}, ids(page.Tasks))
}

func TestQueryTasks_Pagination(t *testing.T) {
	tasks := make([]models.Task, 20)
	for i := range tasks {
		tasks[i] = task(fmt.Sprintf("t%02d", i), models.TaskStatusCreated, "")
	}

	first := QueryTasks(tasks, TaskQuery{Page: 1})
	require.Len(t, first.Tasks, 9)
	assert.Equal(t, "t00", first.Tasks[0].ID)
	assert.Equal(t, 3, first.PaginationAmount)

	second := QueryTasks(tasks, TaskQuery{Page: 2, Mode: constants.PaginationCumulative})
	assert.Len(t, second.Tasks, 18)

	window := QueryTasks(tasks, TaskQuery{Page: 2, Mode: constants.PaginationWindow})
	require.Len(t, window.Tasks, 9)
	assert.Equal(t, "t09", window.Tasks[0].ID)

	past := QueryTasks(tasks, TaskQuery{Page: 7, Mode: constants.PaginationWindow})
	assert.Empty(t, past.Tasks)
	assert.Equal(t, 3, past.PaginationAmount)

	invalid := QueryTasks(tasks, TaskQuery{Page: -2})
	assert.Len(t, invalid.Tasks, 9)

	huge := utils.ParsePage("2049638230412172402")
	assert.Len(t, QueryTasks(tasks, TaskQuery{Page: huge}).Tasks, 20)
	assert.NotPanics(t, func() {
		assert.Empty(t, QueryTasks(tasks, TaskQuery{Page: huge, Mode: constants.PaginationWindow}).Tasks)
	})
}

func TestQueryTasks_DoesNotModifyInput(t *testing.T) {
	tasks := []models.Task{
		task("l", models.TaskStatusCreated, models.PriorityLater),
		task("s", models.TaskStatusCreated, models.PrioritySooner),
	}

	_ = QueryTasks(tasks, TaskQuery{Sort: SortPriorityAsc})

	assert.Equal(t, []string{"l", "s"}, ids(tasks))
}

func TestQueryTasks_EmptyInput(t *testing.T) {
	page := QueryTasks(nil, TaskQuery{})

	assert.Empty(t, page.Tasks)
	assert.NotNil(t, page.Tasks)
	assert.Equal(t, 0, page.PaginationAmount)
}
