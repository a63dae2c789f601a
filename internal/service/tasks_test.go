package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")

	task := f.task(t, alice, p.ID, "  Write brief  ", nil)
	assert.Equal(t, "Write brief", task.Title)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.ParentTask)
	assert.Nil(t, task.AssignedTo)
	assert.Equal(t, models.ProjectRef{ID: p.ID, Name: "Launch"}, task.Project)
	assert.Equal(t, []models.EventType{models.EventTaskCreated}, f.events.types())
}

func TestCreateTaskAcceptsUpperCaseProjectID(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")

	task, err := f.svc.CreateTask(context.Background(), alice, CreateTaskInput{
		Title:     "Write brief",
		ProjectID: " " + strings.ToUpper(p.ID) + " ",
		StartDate: start,
		DueDate:   start.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, task.Project.ID)
}

func TestCreateCompletedTaskSetsCompletedAt(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")

	task, err := f.svc.CreateTask(context.Background(), alice, CreateTaskInput{
		Title:     "Done already",
		ProjectID: p.ID,
		Status:    models.StatusCompleted,
		StartDate: start,
		DueDate:   start,
	})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, start, *task.CompletedAt)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	p := f.project(t, alice, "Launch")

	_, err := f.svc.CreateTask(ctx, alice, CreateTaskInput{
		ProjectID: p.ID,
		Priority:  "urgent",
		StartDate: start,
		DueDate:   start.Add(-time.Hour),
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	got := fields(t, err)
	assert.Equal(t, "is required", got["title"])
	assert.Equal(t, "must be one of: low, medium, high", got["priority"])
	assert.Equal(t, "must not be before start_date", got["due_date"])

	valid := CreateTaskInput{Title: "x", ProjectID: uuid.NewString(), StartDate: start, DueDate: start}
	_, err = f.svc.CreateTask(ctx, alice, valid)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	valid.ProjectID = p.ID
	_, err = f.svc.CreateTask(ctx, mallory, valid)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	valid.AssignedToID = ptr(uuid.NewString())
	_, err = f.svc.CreateTask(ctx, alice, valid)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "user not found", fields(t, err)["assigned_to_id"])

	valid.AssignedToID = ptr("")
	valid.ParentTaskID = ptr(uuid.NewString())
	_, err = f.svc.CreateTask(ctx, alice, valid)
	assert.ErrorIs(t, err, apperr.ErrInvalidHierarchy)
}

func TestTaskRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch", bob)
	parent := f.task(t, alice, p.ID, "Epic", nil)

	created, err := f.svc.CreateTask(ctx, alice, CreateTaskInput{
		Title:        "Story",
		Description:  "details",
		ProjectID:    p.ID,
		ParentTaskID: &parent.ID,
		AssignedToID: &bob.ID,
		ReviewedByID: &alice.ID,
		Priority:     models.PriorityHigh,
		Status:       models.StatusInProgress,
		StartDate:    start,
		DueDate:      start.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	detail, err := f.svc.GetTaskDetail(ctx, bob, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, detail.TaskView)
	assert.Equal(t, "Story", detail.Title)
	assert.Equal(t, "details", detail.Description)
	assert.Equal(t, models.PriorityHigh, detail.Priority)
	assert.Equal(t, models.StatusInProgress, detail.Status)
	assert.Equal(t, start, detail.StartDate)
	assert.Equal(t, start.Add(72*time.Hour), detail.DueDate)
	require.NotNil(t, detail.ParentTask)
	assert.Equal(t, models.TaskRef{ID: parent.ID, Title: "Epic"}, *detail.ParentTask)
	require.NotNil(t, detail.AssignedTo)
	assert.Equal(t, models.UserSummary{ID: bob.ID, Name: "bob", Email: "bob@example.com"}, *detail.AssignedTo)
	require.NotNil(t, detail.ReviewedBy)
	assert.Equal(t, alice.ID, detail.ReviewedBy.ID)
	assert.NotNil(t, detail.SubTasks)
	assert.Empty(t, detail.SubTasks)

	parentDetail, err := f.svc.GetTaskDetail(ctx, alice, parent.ID)
	require.NoError(t, err)
	require.Len(t, parentDetail.SubTasks, 1)
	assert.Equal(t, created.ID, parentDetail.SubTasks[0].ID)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.Contains(t, string(raw), `"sub_tasks":[]`)
}

func TestCompletedAtIsKeptOnRepeatedCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")
	task := f.task(t, alice, p.ID, "Ship", nil)

	completed := models.StatusCompleted
	first, err := f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	f.clock.Advance(time.Hour)
	again, err := f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, again.CompletedAt)
	assert.Equal(t, *first.CompletedAt, *again.CompletedAt)
	assert.Equal(t, start.Add(time.Hour), again.UpdatedAt)

	reopened := models.StatusInProgress
	open, err := f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{Status: &reopened})
	require.NoError(t, err)
	assert.Nil(t, open.CompletedAt)
}

func TestUpdateTaskPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch", bob)
	task := f.task(t, alice, p.ID, "Draft", nil)

	var patch TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Final","assigned_to_id":"`+bob.ID+`"}`), &patch))
	updated, err := f.svc.UpdateTask(ctx, bob, task.ID, patch)
	require.NoError(t, err, "members may edit tasks")
	assert.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, bob.ID, updated.AssignedTo.ID)

	patch = TaskPatch{}
	require.NoError(t, json.Unmarshal([]byte(`{"assigned_to_id":null,"description":"more"}`), &patch))
	updated, err = f.svc.UpdateTask(ctx, alice, task.ID, patch)
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo, "explicit null clears the assignee")
	assert.Equal(t, "Final", updated.Title, "absent fields are untouched")
	assert.Equal(t, "more", updated.Description)

	_, err = f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{Title: ptr("   ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{DueDate: ptr(start.Add(-time.Hour))})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "must not be before start_date", fields(t, err)["due_date"])

	_, err = f.svc.UpdateTask(ctx, alice, task.ID, TaskPatch{ReviewedByID: SetID(uuid.NewString())})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "user not found", fields(t, err)["reviewed_by_id"])

	_, err = f.svc.UpdateTask(ctx, alice, uuid.NewString(), TaskPatch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateTaskForbiddenForOutsiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	p := f.project(t, alice, "Launch")
	task := f.task(t, alice, p.ID, "Secret", nil)

	_, err := f.svc.UpdateTask(ctx, mallory, task.ID, TaskPatch{Title: ptr("mine")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.GetTaskDetail(ctx, mallory, task.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteTask(ctx, mallory, task.ID), apperr.ErrForbidden)
}

func TestReparent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")
	other := f.project(t, alice, "Other")
	a := f.task(t, alice, p.ID, "A", nil)
	b := f.task(t, alice, p.ID, "B", &a)
	c := f.task(t, alice, p.ID, "C", &b)
	foreign := f.task(t, alice, other.ID, "Foreign", nil)

	_, err := f.svc.UpdateTask(ctx, alice, a.ID, TaskPatch{ParentTaskID: SetID(c.ID)})
	assert.ErrorIs(t, err, apperr.ErrInvalidHierarchy, "moving a task under its own subtask")

	_, err = f.svc.UpdateTask(ctx, alice, a.ID, TaskPatch{ParentTaskID: SetID(a.ID)})
	assert.ErrorIs(t, err, apperr.ErrInvalidHierarchy)

	_, err = f.svc.UpdateTask(ctx, alice, a.ID, TaskPatch{ParentTaskID: SetID(foreign.ID)})
	assert.ErrorIs(t, err, apperr.ErrInvalidHierarchy)

	moved, err := f.svc.UpdateTask(ctx, alice, c.ID, TaskPatch{ParentTaskID: SetID(a.ID)})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentTask)
	assert.Equal(t, a.ID, moved.ParentTask.ID)

	root, err := f.svc.UpdateTask(ctx, alice, b.ID, TaskPatch{ParentTaskID: ClearID()})
	require.NoError(t, err)
	assert.Nil(t, root.ParentTask)
}

func TestDeleteTaskRemovesSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	p := f.project(t, alice, "Launch")
	a := f.task(t, alice, p.ID, "A", nil)
	b := f.task(t, alice, p.ID, "B", &a)
	c := f.task(t, alice, p.ID, "C", &b)
	d := f.task(t, alice, p.ID, "D", nil)

	require.NoError(t, f.svc.DeleteTask(ctx, alice, a.ID))

	for _, id := range []string{a.ID, b.ID, c.ID} {
		_, err := f.svc.GetTaskDetail(ctx, alice, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "grandchildren go too")
	}
	left, err := f.svc.ListTasks(ctx, alice, TaskFilter{ProjectID: p.ID})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, d.ID, left[0].ID)
	assert.Contains(t, f.events.types(), models.EventTaskDeleted)
}

func TestListTasksFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch", bob)
	q := f.project(t, bob, "Side")

	a := f.task(t, alice, p.ID, "A", nil)
	b := f.task(t, alice, p.ID, "B", &a)
	c := f.task(t, alice, p.ID, "C", nil)
	f.task(t, bob, q.ID, "S", nil)

	_, err := f.svc.UpdateTask(ctx, alice, b.ID, TaskPatch{AssignedToID: SetID(alice.ID), Priority: ptr(models.PriorityHigh)})
	require.NoError(t, err)
	_, err = f.svc.UpdateTask(ctx, alice, c.ID, TaskPatch{Status: ptr(models.StatusCompleted)})
	require.NoError(t, err)

	titles := func(views []models.TaskView) []string {
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.Title
		}
		return out
	}

	cases := []struct {
		name   string
		who    models.Identity
		filter TaskFilter
		want   []string
	}{
		{"all accessible", alice, TaskFilter{}, []string{"A", "B", "C"}},
		{"member sees both projects", bob, TaskFilter{}, []string{"A", "B", "C", "S"}},
		{"roots", alice, TaskFilter{ProjectID: p.ID, ParentTaskID: "null"}, []string{"A", "C"}},
		{"children", alice, TaskFilter{ParentTaskID: a.ID}, []string{"B"}},
		{"status", alice, TaskFilter{Status: "completed"}, []string{"C"}},
		{"priority", alice, TaskFilter{Priority: "high"}, []string{"B"}},
		{"assigned to me", alice, TaskFilter{AssignedTo: "me"}, []string{"B"}},
		{"assigned to id", bob, TaskFilter{AssignedTo: alice.ID}, []string{"B"}},
		{"limit", bob, TaskFilter{Limit: 2}, []string{"A", "B"}},
		{"other project", bob, TaskFilter{ProjectID: q.ID}, []string{"S"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.ListTasks(ctx, tc.who, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(got))
		})
	}

	_, err = f.svc.ListTasks(ctx, alice, TaskFilter{Status: "done", ParentTaskID: "x", Limit: -1})
	require.ErrorIs(t, err, apperr.ErrValidation)
	got := fields(t, err)
	assert.Contains(t, got, "status")
	assert.Contains(t, got, "parentTaskId")
	assert.Contains(t, got, "limit")

	stranger := f.user(t, "stranger")
	none, err := f.svc.ListTasks(ctx, stranger, TaskFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none, "no accessible projects means no tasks")
}
