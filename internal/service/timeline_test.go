package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

func TestSpanDays(t *testing.T) {
	assert.Equal(t, 1, spanDays(start, start))
	assert.Equal(t, 1, spanDays(start, start.Add(-day)))
	assert.Equal(t, 1, spanDays(start, start.Add(day)))
	assert.Equal(t, 2, spanDays(start, start.Add(day+time.Minute)))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	task := models.Task{Status: models.StatusPending, DueDate: time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)}
	assert.True(t, isOverdue(task, now))

	task.DueDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, isOverdue(task, now), "due today is not overdue")

	task.DueDate = now.Add(-48 * time.Hour)
	task.Status = models.StatusCompleted
	assert.False(t, isOverdue(task, now))
}

func TestProjectTimeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	p := f.project(t, alice, "Launch")

	a := f.task(t, alice, p.ID, "A", nil)
	f.task(t, alice, p.ID, "Z", nil)
	_, err := f.svc.CreateTask(ctx, alice, CreateTaskInput{
		Title:        "A.1",
		ProjectID:    p.ID,
		ParentTaskID: &a.ID,
		Status:       models.StatusCompleted,
		StartDate:    start.Add(3 * day),
		DueDate:      start.Add(3*day + time.Hour),
	})
	require.NoError(t, err)

	f.clock.Advance(5 * day)
	tl, err := f.svc.ProjectTimeline(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectRef{ID: p.ID, Name: "Launch"}, tl.Project)
	assert.Equal(t, 30, tl.DurationDays)
	assert.Equal(t, 33, tl.Progress)

	require.Len(t, tl.Bars, 3)
	titles := []string{tl.Bars[0].Title, tl.Bars[1].Title, tl.Bars[2].Title}
	assert.Equal(t, []string{"A", "A.1", "Z"}, titles, "subtasks follow their parent")

	assert.False(t, tl.Bars[0].IsSubtask)
	assert.Equal(t, 0, tl.Bars[0].OffsetDays)
	assert.Equal(t, 2, tl.Bars[0].DurationDays)
	assert.True(t, tl.Bars[0].Overdue)

	sub := tl.Bars[1]
	assert.True(t, sub.IsSubtask)
	require.NotNil(t, sub.ParentTaskID)
	assert.Equal(t, a.ID, *sub.ParentTaskID)
	assert.Equal(t, 3, sub.OffsetDays)
	assert.Equal(t, 1, sub.DurationDays)
	assert.False(t, sub.Overdue)

	_, err = f.svc.ProjectTimeline(ctx, mallory, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestEmptyTimeline(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Empty")

	tl, err := f.svc.ProjectTimeline(context.Background(), alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.Progress)
	assert.NotNil(t, tl.Bars)
	assert.Empty(t, tl.Bars)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch", bob)
	f.project(t, bob, "Hidden from alice")

	var last models.TaskView
	for i := 0; i < 7; i++ {
		task := f.task(t, alice, p.ID, string(rune('a'+i)), nil)
		_, err := f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{AssignedToID: SetID(alice.ID)})
		require.NoError(t, err)
		last = task
	}
	_, err := f.svc.UpdateTask(ctx, alice, last.ID, TaskPatch{Status: ptr(models.StatusCompleted)})
	require.NoError(t, err)
	f.task(t, bob, p.ID, "unassigned", nil)

	f.clock.Advance(7 * day)
	d, err := f.svc.Dashboard(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ProjectsCount)
	assert.Equal(t, 8, d.TotalTasks)
	assert.Equal(t, 7, d.PendingTasks)
	assert.Equal(t, 1, d.CompletedTasks)
	assert.Equal(t, 7, d.OverdueTasks)
	assert.Equal(t, 13, d.Progress)

	require.Len(t, d.AssignedToMe, DashboardAssignedLimit)
	assert.Equal(t, "g", d.AssignedToMe[0].Title, "newest first")
	assert.Equal(t, "Launch", d.AssignedToMe[0].Project.Name)

	empty, err := f.svc.Dashboard(ctx, f.user(t, "carol"))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalTasks)
	assert.NotNil(t, empty.AssignedToMe)
}
