package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/auth"
	"projectmanager/internal/cache"
	"projectmanager/internal/models"
)

func TestLaunchScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	launch := f.project(t, alice, "Launch", bob)
	assert.Equal(t, alice.ID, launch.Owner.ID)
	require.Len(t, launch.Members, 1)
	assert.Equal(t, bob.ID, launch.Members[0].ID)

	got, err := f.svc.GetProject(ctx, bob, launch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Name)

	root := f.task(t, bob, launch.ID, "Design", nil)
	f.task(t, bob, launch.ID, "Mockups", &root)

	err = f.svc.DeleteProject(ctx, bob, launch.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.svc.DeleteProject(ctx, alice, launch.ID))

	_, err = f.svc.GetProject(ctx, alice, launch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	tasks, err := f.svc.ListTasks(ctx, alice, TaskFilter{ProjectID: launch.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	remaining, err := f.svc.ListTasks(ctx, bob, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.Contains(t, f.events.types(), models.EventProjectDeleted)
}

func TestProjectAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	p := f.project(t, alice, "Private")

	_, err := f.svc.GetProject(ctx, mallory, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.GetProject(ctx, mallory, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound, "existence is checked before access")

	_, err = f.svc.GetProject(ctx, alice, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := f.svc.ListProjectsFor(ctx, mallory)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListTasks(ctx, mallory, TaskFilter{ProjectID: p.ID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.svc.CreateProject(ctx, alice, ProjectInput{
		Name:      "  ",
		StartDate: start,
		EndDate:   start.Add(-time.Hour),
		Color:     "blue",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	got := fields(t, err)
	assert.Equal(t, "is required", got["name"])
	assert.Equal(t, "must not be before start_date", got["end_date"])
	assert.Equal(t, "must be a hex color", got["color"])

	_, err = f.svc.CreateProject(ctx, alice, ProjectInput{
		Name:      "Ghosts",
		Members:   []string{uuid.NewString()},
		StartDate: start,
		EndDate:   start,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, fields(t, err)["members"], "unknown user")
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch")
	assert.Equal(t, models.DefaultProjectColor, p.Color)

	in := ProjectInput{
		Name:      "Launch v2",
		Members:   []string{bob.ID, bob.ID, alice.ID},
		StartDate: start,
		EndDate:   start.Add(60 * 24 * time.Hour),
	}
	_, err := f.svc.UpdateProject(ctx, bob, p.ID, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := f.svc.UpdateProject(ctx, alice, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Name)
	assert.Equal(t, alice.ID, updated.Owner.ID, "owner never changes")
	assert.Equal(t, models.DefaultProjectColor, updated.Color, "empty color keeps the current one")
	assert.Len(t, updated.Members, 2, "members are de-duplicated")

	_, err = f.svc.GetProject(ctx, bob, p.ID)
	assert.NoError(t, err, "bob became a member")
	assert.Equal(t, []models.EventType{models.EventProjectUpdated}, f.events.types())
}

func TestUpdateProjectEventCarriesAudience(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	p := f.project(t, alice, "Launch", bob, carol)

	_, err := f.svc.UpdateProject(ctx, alice, p.ID, ProjectInput{
		Name:      p.Name,
		Members:   []string{carol.ID},
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	})
	require.NoError(t, err)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 1)
	e := f.events.events[0]
	assert.Equal(t, models.EventProjectUpdated, e.Type)
	assert.ElementsMatch(t, []string{alice.ID, carol.ID}, e.Audience, "bob was dropped")
}

func TestProjectCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newFixture(t)
	f.svc = New(Deps{
		Store:  f.store,
		Cache:  cache.NewRedis(client),
		Tokens: auth.NewTokenIssuer("test-secret", time.Hour),
		Now:    f.clock.Now,
	})
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, "Launch")

	_, err := f.svc.GetProject(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ProjectKey(p.ID)))
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))

	_, err = f.svc.GetProject(ctx, bob, p.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateProject(ctx, alice, p.ID, ProjectInput{
		Name:      "Launch",
		Members:   []string{bob.ID},
		StartDate: start,
		EndDate:   start.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ProjectKey(p.ID)), "update drops the cached project")

	_, err = f.svc.GetProject(ctx, bob, p.ID)
	assert.NoError(t, err, "membership change is visible immediately")

	require.NoError(t, f.svc.DeleteProject(ctx, alice, p.ID))
	assert.False(t, mr.Exists(cache.ProjectKey(p.ID)))
	_, err = f.svc.GetProject(ctx, alice, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
