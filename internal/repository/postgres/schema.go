package postgres

import (
	"context"

	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255) NOT NULL,
    role VARCHAR(32) NOT NULL DEFAULT 'user',
    password VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
    id UUID PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id UUID NOT NULL REFERENCES users (id),
    member_ids UUID[] NOT NULL DEFAULT '{}',
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ NOT NULL,
    color VARCHAR(32) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    seq BIGSERIAL NOT NULL,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    project_id UUID NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
    parent_task_id UUID REFERENCES tasks (id) ON DELETE CASCADE,
    assigned_to_id UUID REFERENCES users (id),
    reviewed_by_id UUID REFERENCES users (id),
    priority VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL,
    start_date TIMESTAMPTZ NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- A subtask created while its parent is being deleted goes with it.
ALTER TABLE tasks DROP CONSTRAINT IF EXISTS tasks_parent_task_id_fkey;
ALTER TABLE tasks ADD CONSTRAINT tasks_parent_task_id_fkey
    FOREIGN KEY (parent_task_id) REFERENCES tasks (id) ON DELETE CASCADE;

CREATE INDEX IF NOT EXISTS tasks_project_idx ON tasks (project_id, seq);
CREATE INDEX IF NOT EXISTS tasks_parent_idx ON tasks (parent_task_id);
CREATE INDEX IF NOT EXISTS tasks_assignee_idx ON tasks (assigned_to_id);

CREATE TABLE IF NOT EXISTS settings (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL UNIQUE REFERENCES users (id),
    theme VARCHAR(16) NOT NULL,
    language VARCHAR(8) NOT NULL,
    notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    project_colors TEXT[] NOT NULL DEFAULT '{}',
    task_colors JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		logger.SystemLogger.Error("Error creating tables", zap.Error(err))
		return apperr.Internal("Error creating tables", err)
	}
	logger.SystemLogger.Info("Tables 'users', 'projects', 'tasks', 'settings' are ready")
	return nil
}

// Drop removes every table created by Migrate.
func (s *Store) Drop(ctx context.Context) error {
	query := `
    DROP TABLE IF EXISTS settings;
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS projects;
    DROP TABLE IF EXISTS users;
    `
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		logger.SystemLogger.Error("Error deleting tables", zap.Error(err))
		return apperr.Internal("Error deleting tables", err)
	}
	logger.SystemLogger.Info("Tables 'users', 'projects', 'tasks', 'settings' are deleted")
	return nil
}
