// Package postgres is the repository.Store backed by PostgreSQL through
// lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close(context.Context) error { return s.db.Close() }

// translate maps driver errors onto the apperr taxonomy.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apperr.Conflict(what + " already exists")
		case "23503":
			return apperr.Validation("Referenced record does not exist")
		case "22P02":
			return apperr.Validation("Invalid identifier")
		}
	}
	return apperr.Internal("Database error", err)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// Users

const userColumns = "id, email, name, role, password, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	query := "INSERT INTO users (" + userColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7)"
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return translate(err, "User")
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	return u, translate(err, "User")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = LOWER($1)"
	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	return u, translate(err, "User")
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, email")
	if err != nil {
		return nil, translate(err, "User")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "User")
		}
		users = append(users, u)
	}
	return users, translate(rows.Err(), "User")
}

func (s *Store) UserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM users WHERE id = ANY($1::uuid[])", pq.Array(ids))
	if err != nil {
		return nil, translate(err, "User")
	}
	defer rows.Close()

	var out []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, translate(err, "User")
		}
		out = append(out, u)
	}
	return out, translate(rows.Err(), "User")
}

// Projects

const projectColumns = "id, name, description, owner_id, member_ids, start_date, end_date, color, created_at, updated_at"

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var members pq.StringArray
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &members,
		&p.StartDate, &p.EndDate, &p.Color, &p.CreatedAt, &p.UpdatedAt)
	p.MemberIDs = []string(members)
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}
	return p, err
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "Project")
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, translate(err, "Project")
		}
		out = append(out, p)
	}
	return out, translate(rows.Err(), "Project")
}

func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	query := "INSERT INTO projects (" + projectColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.OwnerID, pq.Array(p.MemberIDs),
		p.StartDate, p.EndDate, p.Color, p.CreatedAt, p.UpdatedAt)
	return translate(err, "Project")
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE id = $1"
	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	return p, translate(err, "Project")
}

func (s *Store) ProjectsByIDs(ctx context.Context, ids []string) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + projectColumns + " FROM projects WHERE id = ANY($1::uuid[]) ORDER BY created_at"
	return s.queryProjects(ctx, query, pq.Array(ids))
}

func (s *Store) UpdateProject(ctx context.Context, p models.Project) error {
	query := `
UPDATE projects
SET name = $2, description = $3, member_ids = $4, start_date = $5, end_date = $6, color = $7, updated_at = $8
WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, pq.Array(p.MemberIDs),
		p.StartDate, p.EndDate, p.Color, p.UpdatedAt)
	return affected(res, err, "Project")
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	return affected(res, err, "Project")
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE owner_id = $1 OR $1 = ANY(member_ids) ORDER BY created_at"
	return s.queryProjects(ctx, query, userID)
}

func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return translate(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, what)
	}
	if n == 0 {
		return apperr.NotFound(what + " not found")
	}
	return nil
}

// Tasks

const taskColumns = "id, seq, title, description, project_id, parent_task_id, assigned_to_id, reviewed_by_id, " +
	"priority, status, start_date, due_date, completed_at, created_at, updated_at"

func scanTask(row scanner) (models.Task, error) {
	var (
		t                      models.Task
		parent, assignee, revi sql.NullString
		completed              sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Seq, &t.Title, &t.Description, &t.ProjectID, &parent, &assignee, &revi,
		&t.Priority, &t.Status, &t.StartDate, &t.DueDate, &completed, &t.CreatedAt, &t.UpdatedAt)
	t.ParentTaskID = stringPtr(parent)
	t.AssignedToID = stringPtr(assignee)
	t.ReviewedByID = stringPtr(revi)
	t.CompletedAt = timePtr(completed)
	return t, err
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "Task")
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, translate(err, "Task")
		}
		out = append(out, t)
	}
	return out, translate(rows.Err(), "Task")
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	query := `
INSERT INTO tasks (id, title, description, project_id, parent_task_id, assigned_to_id, reviewed_by_id,
	priority, status, start_date, due_date, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING seq`
	err := s.db.QueryRowContext(ctx, query, t.ID, t.Title, t.Description, t.ProjectID,
		nullString(t.ParentTaskID), nullString(t.AssignedToID), nullString(t.ReviewedByID),
		t.Priority, t.Status, t.StartDate, t.DueDate, nullTime(t.CompletedAt), t.CreatedAt, t.UpdatedAt,
	).Scan(&t.Seq)
	return translate(err, "Task")
}

func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	return t, translate(err, "Task")
}

func (s *Store) TasksByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ANY($1::uuid[]) ORDER BY seq"
	return s.queryTasks(ctx, query, pq.Array(ids))
}

func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	query := `
UPDATE tasks
SET title = $2, description = $3, parent_task_id = $4, assigned_to_id = $5, reviewed_by_id = $6,
	priority = $7, status = $8, start_date = $9, due_date = $10, completed_at = $11, updated_at = $12
WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, t.ID, t.Title, t.Description,
		nullString(t.ParentTaskID), nullString(t.AssignedToID), nullString(t.ReviewedByID),
		t.Priority, t.Status, t.StartDate, t.DueDate, nullTime(t.CompletedAt), t.UpdatedAt)
	return affected(res, err, "Task")
}

// buildTaskFilter renders q as a WHERE clause. ok is false when q can match
// nothing.
func buildTaskFilter(q repository.TaskQuery) (where string, args []any, ok bool) {
	var conds []string
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.ProjectIDs != nil {
		if len(q.ProjectIDs) == 0 {
			return "", nil, false
		}
		add("project_id = ANY($%d::uuid[])", pq.Array(q.ProjectIDs))
	}
	if q.RootOnly {
		conds = append(conds, "parent_task_id IS NULL")
	}
	if q.ParentTaskID != nil {
		add("parent_task_id = $%d", *q.ParentTaskID)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Priority != "" {
		add("priority = $%d", string(q.Priority))
	}
	if q.AssignedTo != "" {
		add("assigned_to_id = $%d", q.AssignedTo)
	}

	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	return where, args, true
}

func (s *Store) ListTasks(ctx context.Context, q repository.TaskQuery) ([]models.Task, error) {
	where, args, ok := buildTaskFilter(q)
	if !ok {
		return nil, nil
	}
	query := "SELECT " + taskColumns + " FROM tasks" + where + " ORDER BY seq"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryTasks(ctx, query, args...)
}

func (s *Store) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ANY($1::uuid[])", pq.Array(ids))
	if err != nil {
		return 0, translate(err, "Task")
	}
	n, err := res.RowsAffected()
	return n, translate(err, "Task")
}

func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = $1", projectID)
	if err != nil {
		return 0, translate(err, "Task")
	}
	n, err := res.RowsAffected()
	return n, translate(err, "Task")
}

// Settings

const settingsColumns = "id, user_id, theme, language, notifications_enabled, project_colors, task_colors, created_at, updated_at"

func (s *Store) GetSettings(ctx context.Context, userID string) (models.Settings, error) {
	var (
		st         models.Settings
		projColors pq.StringArray
		taskColors []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT "+settingsColumns+" FROM settings WHERE user_id = $1", userID).Scan(
		&st.ID, &st.UserID, &st.Theme, &st.Language, &st.NotificationsEnabled, &projColors, &taskColors,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return models.Settings{}, translate(err, "Settings")
	}
	st.ColorPalette.ProjectColors = []string(projColors)
	if err := json.Unmarshal(taskColors, &st.ColorPalette.TaskColors); err != nil {
		return models.Settings{}, apperr.Internal("Corrupt task colors", err)
	}
	return st, nil
}

func (s *Store) CreateSettings(ctx context.Context, st models.Settings) error {
	taskColors, err := json.Marshal(st.ColorPalette.TaskColors)
	if err != nil {
		return apperr.Internal("Failed to encode task colors", err)
	}
	query := "INSERT INTO settings (" + settingsColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	_, err = s.db.ExecContext(ctx, query, st.ID, st.UserID, st.Theme, st.Language, st.NotificationsEnabled,
		pq.Array(st.ColorPalette.ProjectColors), taskColors, st.CreatedAt, st.UpdatedAt)
	return translate(err, "Settings")
}

func (s *Store) UpdateSettings(ctx context.Context, st models.Settings) error {
	taskColors, err := json.Marshal(st.ColorPalette.TaskColors)
	if err != nil {
		return apperr.Internal("Failed to encode task colors", err)
	}
	query := `
UPDATE settings
SET theme = $2, language = $3, notifications_enabled = $4, project_colors = $5, task_colors = $6, updated_at = $7
WHERE user_id = $1`
	res, err := s.db.ExecContext(ctx, query, st.UserID, st.Theme, st.Language, st.NotificationsEnabled,
		pq.Array(st.ColorPalette.ProjectColors), taskColors, st.UpdatedAt)
	return affected(res, err, "Settings")
}

// Stats

func (s *Store) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	query := `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(*) FROM projects),
	(SELECT COUNT(*) FROM tasks),
	(SELECT COUNT(*) FROM projects WHERE end_date >= $1),
	(SELECT COUNT(*) FROM tasks WHERE status = 'completed'),
	(SELECT COUNT(*) FROM tasks WHERE status = 'pending'),
	(SELECT COUNT(*) FROM tasks WHERE status = 'in_progress')`
	var st models.Stats
	err := s.db.QueryRowContext(ctx, query, now).Scan(&st.TotalUsers, &st.TotalProjects, &st.TotalTasks,
		&st.ActiveProjects, &st.CompletedTasks, &st.PendingTasks, &st.InProgressTasks)
	return st, translate(err, "Stats")
}

func (s *Store) CountOwnedProjects(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE owner_id = $1", userID).Scan(&n)
	return n, translate(err, "Project")
}

func (s *Store) CountAssignedTasks(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE assigned_to_id = $1", userID).Scan(&n)
	return n, translate(err, "Task")
}
