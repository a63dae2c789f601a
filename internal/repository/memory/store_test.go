package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
	"projectmanager/internal/repository/storetest"
)

func strPtr(s string) *string { return &s }

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "u1", Email: "a@example.com"}))
	err := s.CreateUser(ctx, models.User{ID: "u2", Email: "A@example.com"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestListTasksKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"c", "a", "b"} {
		task := &models.Task{ID: id, ProjectID: "p1"}
		require.NoError(t, s.CreateTask(ctx, task))
	}

	tasks, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{"p1"}})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].ID)
	assert.Equal(t, "a", tasks[1].ID)
	assert.Equal(t, "b", tasks[2].ID)
	assert.Less(t, tasks[0].Seq, tasks[1].Seq)
}

func TestListTasksFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	root := &models.Task{ID: "root", ProjectID: "p1", Status: models.StatusPending}
	child := &models.Task{ID: "child", ProjectID: "p1", ParentTaskID: strPtr("root"), Status: models.StatusCompleted, AssignedToID: strPtr("u1")}
	other := &models.Task{ID: "other", ProjectID: "p2", Status: models.StatusPending}
	for _, task := range []*models.Task{root, child, other} {
		require.NoError(t, s.CreateTask(ctx, task))
	}

	roots, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{"p1"}, RootOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)

	children, err := s.ListTasks(ctx, repository.TaskQuery{ParentTaskID: strPtr("root")})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "child", children[0].ID)

	assigned, err := s.ListTasks(ctx, repository.TaskQuery{AssignedTo: "u1"})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	none, err := s.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	limited, err := s.ListTasks(ctx, repository.TaskQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateProject(ctx, models.Project{ID: "p1", OwnerID: "u1", MemberIDs: []string{"u2"}}))
	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	p.MemberIDs[0] = "mutated"

	again, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, again.MemberIDs)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, s.CreateProject(ctx, models.Project{ID: "old", OwnerID: "u1", EndDate: now.AddDate(0, -1, 0)}))
	require.NoError(t, s.CreateProject(ctx, models.Project{ID: "live", OwnerID: "u1", EndDate: now.AddDate(0, 1, 0)}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{ID: "t1", ProjectID: "live", Status: models.StatusCompleted, AssignedToID: strPtr("u1")}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{ID: "t2", ProjectID: "live", Status: models.StatusInProgress}))

	st, err := s.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{
		TotalUsers: 1, TotalProjects: 2, TotalTasks: 2, ActiveProjects: 1,
		CompletedTasks: 1, InProgressTasks: 1,
	}, st)

	owned, err := s.CountOwnedProjects(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, owned)

	assigned, err := s.CountAssignedTasks(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, assigned)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, New())
}
