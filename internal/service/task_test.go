package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager-api/internal/core/errs"
	"task-manager-api/internal/domain"
	"task-manager-api/pkg/utils"
)

var fixedNow = time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

func newTaskService(t *testing.T) *TaskService {
	t.Helper()
	svc := NewTaskService(newStore(t).Tasks, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func ptr[T any](v T) *T { return &v }

func TestCreateTask(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()
	owner := utils.NewID()

	_, err := svc.Create(ctx, owner, TaskInput{DueDate: "2030-01-11"})
	require.Error(t, err)
	assert.Equal(t, "Title is Required", err.Error())

	_, err = svc.Create(ctx, owner, TaskInput{Title: "x"})
	assert.Equal(t, "Due date is required", err.Error())

	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "2030-01-09"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.Equal(t, "Date must be in the Future", err.Error())

	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: fixedNow.Format(time.RFC3339)})
	assert.Equal(t, "Date must be in the Future", err.Error())

	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "2030-01-11", Priority: "urgent"})
	assert.Equal(t, "Priority must be low, medium or high", err.Error())

	_, err = svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "next week"})
	assert.Equal(t, "Invalid due date", err.Error())

	tk, err := svc.Create(ctx, owner, TaskInput{Title: "write", Description: ptr("report"), DueDate: "2030-01-11T09:30:00.123456+02:00"})
	require.NoError(t, err)
	assert.Equal(t, owner, tk.UserID)
	assert.Equal(t, domain.PriorityMedium, tk.Priority)
	assert.False(t, tk.Completed)
	assert.Equal(t, "report", tk.Description)
	assert.Equal(t, time.Date(2030, 1, 11, 7, 30, 0, 123000000, time.UTC), tk.DueDate)
}

func TestListTasks_FiltersAndScope(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()
	alice, bob := utils.NewID(), utils.NewID()

	a1, err := svc.Create(ctx, alice, TaskInput{Title: "a1", DueDate: "2030-01-11", Priority: "high"})
	require.NoError(t, err)
	a2, err := svc.Create(ctx, alice, TaskInput{Title: "a2", DueDate: "2030-02-01", Completed: ptr(true)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, TaskInput{Title: "b1", DueDate: "2030-01-11", Completed: ptr(true)})
	require.NoError(t, err)

	done, err := svc.List(ctx, alice, TaskQuery{Completed: "true"})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a2.ID, done[0].ID)

	high, err := svc.List(ctx, alice, TaskQuery{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, a1.ID, high[0].ID)

	soon, err := svc.List(ctx, alice, TaskQuery{DueDate: "2030-01-15"})
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, a1.ID, soon[0].ID)

	all, err := svc.List(ctx, alice, TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, alice, TaskQuery{Completed: "yes"})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestParseTaskFilter(t *testing.T) {
	f, err := ParseTaskFilter(TaskQuery{Priority: "low", Completed: "false", DueDate: "2030-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityLow, *f.Priority)
	assert.False(t, *f.Completed)
	assert.True(t, f.DueBefore.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))

	f, err = ParseTaskFilter(TaskQuery{})
	require.NoError(t, err)
	assert.Nil(t, f.Priority)
	assert.Nil(t, f.Completed)
	assert.Nil(t, f.DueBefore)

	for _, q := range []TaskQuery{{Priority: "3"}, {Completed: "1"}, {DueDate: "tomorrow"}} {
		_, err := ParseTaskFilter(q)
		assert.True(t, errs.Is(err, errs.KindValidation), "%+v", q)
	}
}

func TestUpdateTask(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()
	owner, stranger := utils.NewID(), utils.NewID()

	tk, err := svc.Create(ctx, owner, TaskInput{Title: "draft", Description: ptr("d"), DueDate: "2030-01-11", Priority: "low"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, "not-an-id", TaskInput{Title: "x"})
	assert.Equal(t, "Invalid task ID", err.Error())

	_, err = svc.Update(ctx, owner, tk.ID, TaskInput{})
	assert.Equal(t, "Title is Required", err.Error())

	_, err = svc.Update(ctx, owner, tk.ID, TaskInput{Title: "x", Priority: "urgent"})
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.Update(ctx, stranger, tk.ID, TaskInput{Title: "stolen"})
	assert.True(t, errs.Is(err, errs.KindNotFound))

	// 更新时不检查截止日期是否在未来
	got, err := svc.Update(ctx, owner, tk.ID, TaskInput{Title: "final", DueDate: "2020-01-01", Completed: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, domain.PriorityLow, got.Priority)
	assert.True(t, got.Completed)
	assert.Equal(t, 2020, got.DueDate.Year())
}

func TestDeleteTask(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()
	owner := utils.NewID()
	tk, err := svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "2030-01-11"})
	require.NoError(t, err)

	assert.Equal(t, "Invalid task ID", svc.Delete(ctx, owner, "123").Error())

	err = svc.Delete(ctx, utils.NewID(), tk.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.Equal(t, "Task not Found", err.Error())

	require.NoError(t, svc.Delete(ctx, owner, tk.ID))
	assert.True(t, errs.Is(svc.Delete(ctx, owner, tk.ID), errs.KindNotFound))
}

func TestSetStatus(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()
	owner := utils.NewID()
	tk, err := svc.Create(ctx, owner, TaskInput{Title: "x", DueDate: "2030-01-11"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, utils.NewID(), tk.ID, true)
	assert.True(t, errs.Is(err, errs.KindNotFound))

	got, err := svc.SetStatus(ctx, owner, tk.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "Task marked as Completed", StatusMessage(got.Completed))

	list, err := svc.List(ctx, owner, TaskQuery{Completed: "true"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err = svc.SetStatus(ctx, owner, tk.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Task marked as Incomplete", StatusMessage(got.Completed))
}

func TestBackfillPriorities(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	owner := utils.NewID()
	for i, p := range []domain.Priority{"1", "3", "3", domain.PriorityMedium} {
		require.NoError(t, s.Tasks.Create(ctx, &domain.Task{
			ID:        utils.NewID(),
			Title:     "legacy",
			DueDate:   fixedNow.Add(time.Duration(i+1) * time.Hour),
			Priority:  p,
			UserID:    owner,
			CreatedAt: fixedNow,
			UpdatedAt: fixedNow,
		}))
	}

	n, err := BackfillPriorities(ctx, s.Tasks, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	high := domain.PriorityHigh
	highs, err := s.Tasks.List(ctx, owner, domain.TaskFilter{Priority: &high})
	require.NoError(t, err)
	assert.Len(t, highs, 2)

	n, err = BackfillPriorities(ctx, s.Tasks, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
