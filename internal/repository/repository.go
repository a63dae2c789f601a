// Package repository declares the entity store used by the service layer.
// Backends live in the postgres, mongo and memory subpackages; all of them
// report a missing record as apperr.NotFound and a unique-key clash as
// apperr.Conflict.
package repository

import (
	"context"
	"time"

	"projectmanager/internal/models"
)

// TaskQuery filters ListTasks. Zero-valued fields do not restrict the
// result. A nil ProjectIDs means any project; a non-nil empty slice matches
// nothing. Results are ordered by insertion (Task.Seq).
type TaskQuery struct {
	ProjectIDs   []string
	ParentTaskID *string
	RootOnly     bool
	Status       models.Status
	Priority     models.Priority
	AssignedTo   string
	Limit        int
}

type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p models.Project) error
	GetProject(ctx context.Context, id string) (models.Project, error)
	ProjectsByIDs(ctx context.Context, ids []string) ([]models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error)
}

type TaskStore interface {
	// CreateTask stores t and assigns t.Seq.
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (models.Task, error)
	TasksByIDs(ctx context.Context, ids []string) ([]models.Task, error)
	UpdateTask(ctx context.Context, t models.Task) error
	ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, error)
	DeleteTasks(ctx context.Context, ids []string) (int64, error)
	DeleteTasksByProject(ctx context.Context, projectID string) (int64, error)
}

type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (models.Settings, error)
	CreateSettings(ctx context.Context, s models.Settings) error
	UpdateSettings(ctx context.Context, s models.Settings) error
}

type StatsStore interface {
	Stats(ctx context.Context, now time.Time) (models.Stats, error)
	CountOwnedProjects(ctx context.Context, userID string) (int64, error)
	CountAssignedTasks(ctx context.Context, userID string) (int64, error)
}

type Store interface {
	UserStore
	ProjectStore
	TaskStore
	SettingsStore
	StatsStore

	// Migrate creates collections, tables and indexes if they are missing.
	Migrate(ctx context.Context) error
	// Drop removes everything Migrate created.
	Drop(ctx context.Context) error
	Close(ctx context.Context) error
}
