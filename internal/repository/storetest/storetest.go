// Package storetest holds the behaviour every repository.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

// Run exercises s. The store must be empty and migrated.
func Run(t *testing.T, s repository.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, s) })
	t.Run("projects", func(t *testing.T) { testProjects(t, s) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, s) })
	t.Run("settings", func(t *testing.T) { testSettings(t, s) })
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newUser(t *testing.T, s repository.Store, email string) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         email,
		Role:         models.RoleUser,
		PasswordHash: "hash",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newProject(t *testing.T, s repository.Store, owner string, members ...string) models.Project {
	t.Helper()
	if members == nil {
		members = []string{}
	}
	p := models.Project{
		ID:          uuid.NewString(),
		Name:        "Launch",
		Description: "",
		OwnerID:     owner,
		MemberIDs:   members,
		StartDate:   base,
		EndDate:     base.AddDate(0, 1, 0),
		Color:       models.DefaultProjectColor,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func newTask(t *testing.T, s repository.Store, projectID string, parent *string) models.Task {
	t.Helper()
	task := models.Task{
		ID:           uuid.NewString(),
		Title:        "task",
		ProjectID:    projectID,
		ParentTaskID: parent,
		Priority:     models.PriorityMedium,
		Status:       models.StatusPending,
		StartDate:    base,
		DueDate:      base.AddDate(0, 0, 7),
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, s.CreateTask(context.Background(), &task))
	return task
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := newUser(t, s, "alice@example.com")

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	dup := u
	dup.ID = uuid.NewString()
	assert.True(t, errors.Is(s.CreateUser(ctx, dup), apperr.ErrConflict))

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	summaries, err := s.UserSummaries(ctx, []string{u.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, u.Summary(), summaries[0])

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, users)
}

func testProjects(t *testing.T, s repository.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "owner@example.com")
	member := newUser(t, s, "member@example.com")
	outsider := newUser(t, s, "outsider@example.com")

	p := newProject(t, s, owner.ID, member.ID)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{member.ID}, got.MemberIDs)
	assert.Equal(t, owner.ID, got.OwnerID)

	forMember, err := s.ListProjectsForUser(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, forMember, 1)

	forOutsider, err := s.ListProjectsForUser(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, forOutsider)

	got.Name = "Relaunch"
	got.MemberIDs = []string{member.ID, outsider.ID}
	require.NoError(t, s.UpdateProject(ctx, got))
	updated, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Relaunch", updated.Name)
	assert.Len(t, updated.MemberIDs, 2)

	byIDs, err := s.ProjectsByIDs(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	owned, err := s.CountOwnedProjects(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owned)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteProject(ctx, p.ID), apperr.ErrNotFound))
}

func testTasks(t *testing.T, s repository.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "taskowner@example.com")
	p := newProject(t, s, owner.ID)
	other := newProject(t, s, owner.ID)

	root := newTask(t, s, p.ID, nil)
	child := newTask(t, s, p.ID, &root.ID)
	grandchild := newTask(t, s, p.ID, &child.ID)
	elsewhere := newTask(t, s, other.ID, nil)
	assert.Less(t, root.Seq, child.Seq)
	assert.Less(t, child.Seq, grandchild.Seq)

	all, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{p.ID}})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{root.ID, child.ID, grandchild.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	roots, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{p.ID}, RootOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	children, err := s.ListTasks(ctx, repository.TaskQuery{ParentTaskID: &root.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)

	none, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	now := base.AddDate(0, 0, 1)
	child.Status = models.StatusCompleted
	child.CompletedAt = &now
	child.AssignedToID = &owner.ID
	require.NoError(t, s.UpdateTask(ctx, child))

	got, err := s.GetTask(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, now.Equal(*got.CompletedAt))
	assert.Equal(t, child.Seq, got.Seq)

	completed, err := s.ListTasks(ctx, repository.TaskQuery{Status: models.StatusCompleted, AssignedTo: owner.ID})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	assigned, err := s.CountAssignedTasks(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, assigned)

	byIDs, err := s.TasksByIDs(ctx, []string{grandchild.ID, root.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, root.ID, byIDs[0].ID)

	n, err := s.DeleteTasks(ctx, []string{child.ID, grandchild.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.DeleteTasksByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetTask(ctx, root.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = s.GetTask(ctx, elsewhere.ID)
	assert.NoError(t, err)

	st, err := s.Stats(ctx, base)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.TotalTasks, int64(1))
	assert.GreaterOrEqual(t, st.ActiveProjects, int64(2))
}

func testSettings(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := newUser(t, s, "settings@example.com")

	_, err := s.GetSettings(ctx, u.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	st := models.DefaultSettings(u.ID, base)
	st.ID = uuid.NewString()
	require.NoError(t, s.CreateSettings(ctx, st))

	dup := st
	dup.ID = uuid.NewString()
	assert.True(t, errors.Is(s.CreateSettings(ctx, dup), apperr.ErrConflict))

	st.Theme = "dark"
	st.ColorPalette.TaskColors["high"] = "#000000"
	require.NoError(t, s.UpdateSettings(ctx, st))

	got, err := s.GetSettings(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "#000000", got.ColorPalette.TaskColors["high"])
	assert.Equal(t, models.DefaultProjectColors(), got.ColorPalette.ProjectColors)
}
