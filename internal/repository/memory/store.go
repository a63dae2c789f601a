// Package memory is an in-process repository.Store. It backs the
// DB_DRIVER=memory development mode and the service and handler tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	projects map[string]models.Project
	tasks    map[string]models.Task
	settings map[string]models.Settings
	seq      int64
	// insertion order for deterministic listings
	userOrder    []string
	projectOrder []string
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    map[string]models.User{},
		projects: map[string]models.Project{},
		tasks:    map[string]models.Task{},
		settings: map[string]models.Settings{},
	}
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = map[string]models.User{}
	s.projects = map[string]models.Project{}
	s.tasks = map[string]models.Task{}
	s.settings = map[string]models.Settings{}
	s.userOrder = nil
	s.projectOrder = nil
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("User with this email already exists")
		}
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("User not found")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("User not found")
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) UserSummaries(_ context.Context, ids []string) ([]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

// Projects

func (s *Store) CreateProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return apperr.Conflict("Project already exists")
	}
	s.projects[p.ID] = cloneProject(p)
	s.projectOrder = append(s.projectOrder, p.ID)
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, apperr.NotFound("Project not found")
	}
	return cloneProject(p), nil
}

func (s *Store) ProjectsByIDs(_ context.Context, ids []string) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.projects[id]; ok {
			out = append(out, cloneProject(p))
		}
	}
	return out, nil
}

func (s *Store) UpdateProject(_ context.Context, p models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return apperr.NotFound("Project not found")
	}
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return apperr.NotFound("Project not found")
	}
	delete(s.projects, id)
	s.projectOrder = slices.DeleteFunc(s.projectOrder, func(v string) bool { return v == id })
	return nil
}

func (s *Store) ListProjectsForUser(_ context.Context, userID string) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Project
	for _, id := range s.projectOrder {
		p := s.projects[id]
		if p.IsOwner(userID) || p.HasMember(userID) {
			out = append(out, cloneProject(p))
		}
	}
	return out, nil
}

// Tasks

func (s *Store) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return apperr.Conflict("Task already exists")
	}
	s.seq++
	t.Seq = s.seq
	s.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, apperr.NotFound("Task not found")
	}
	return cloneTask(t), nil
}

func (s *Store) TasksByIDs(_ context.Context, ids []string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	sortBySeq(out)
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, t models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok {
		return apperr.NotFound("Task not found")
	}
	t.Seq = cur.Seq
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *Store) ListTasks(_ context.Context, q repository.TaskQuery) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if matches(t, q) {
			out = append(out, cloneTask(t))
		}
	}
	sortBySeq(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) DeleteTasks(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.tasks[id]; ok {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteTasksByProject(_ context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tasks {
		if t.ProjectID == projectID {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}

// Settings

func (s *Store) GetSettings(_ context.Context, userID string) (models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[userID]
	if !ok {
		return models.Settings{}, apperr.NotFound("Settings not found")
	}
	return cloneSettings(st), nil
}

func (s *Store) CreateSettings(_ context.Context, st models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[st.UserID]; ok {
		return apperr.Conflict("Settings already exist for this user")
	}
	s.settings[st.UserID] = cloneSettings(st)
	return nil
}

func (s *Store) UpdateSettings(_ context.Context, st models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[st.UserID]; !ok {
		return apperr.NotFound("Settings not found")
	}
	s.settings[st.UserID] = cloneSettings(st)
	return nil
}

// Stats

func (s *Store) Stats(_ context.Context, now time.Time) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.Stats{
		TotalUsers:    int64(len(s.users)),
		TotalProjects: int64(len(s.projects)),
		TotalTasks:    int64(len(s.tasks)),
	}
	for _, p := range s.projects {
		if !p.EndDate.Before(now) {
			st.ActiveProjects++
		}
	}
	for _, t := range s.tasks {
		switch t.Status {
		case models.StatusCompleted:
			st.CompletedTasks++
		case models.StatusPending:
			st.PendingTasks++
		case models.StatusInProgress:
			st.InProgressTasks++
		}
	}
	return st, nil
}

func (s *Store) CountOwnedProjects(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.projects {
		if p.OwnerID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountAssignedTasks(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tasks {
		if t.AssignedToID != nil && *t.AssignedToID == userID {
			n++
		}
	}
	return n, nil
}

func matches(t models.Task, q repository.TaskQuery) bool {
	if q.ProjectIDs != nil && !slices.Contains(q.ProjectIDs, t.ProjectID) {
		return false
	}
	if q.RootOnly && t.ParentTaskID != nil {
		return false
	}
	if q.ParentTaskID != nil && (t.ParentTaskID == nil || *t.ParentTaskID != *q.ParentTaskID) {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if q.AssignedTo != "" && (t.AssignedToID == nil || *t.AssignedToID != q.AssignedTo) {
		return false
	}
	return true
}

func sortBySeq(tasks []models.Task) {
	slices.SortFunc(tasks, func(a, b models.Task) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
}

func cloneProject(p models.Project) models.Project {
	p.MemberIDs = slices.Clone(p.MemberIDs)
	return p
}

func cloneTask(t models.Task) models.Task {
	t.ParentTaskID = cloneString(t.ParentTaskID)
	t.AssignedToID = cloneString(t.AssignedToID)
	t.ReviewedByID = cloneString(t.ReviewedByID)
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	return t
}

func cloneSettings(s models.Settings) models.Settings {
	s.ColorPalette.ProjectColors = slices.Clone(s.ColorPalette.ProjectColors)
	colors := make(map[string]string, len(s.ColorPalette.TaskColors))
	for k, v := range s.ColorPalette.TaskColors {
		colors[k] = v
	}
	s.ColorPalette.TaskColors = colors
	return s
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
