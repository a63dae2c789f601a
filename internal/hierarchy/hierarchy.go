// Package hierarchy keeps the task tree consistent: defaults and completion
// timestamps on write, parent validation, tree traversal and cascading
// deletes. The tree is derived from flat task records through ParentTaskID.
package hierarchy

import (
	"context"
	"errors"
	"time"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

// MaxDepth bounds how far ValidateParent walks up a parent chain.
const MaxDepth = 100

// Store is the subset of repository.Store the manager needs.
type Store interface {
	GetTask(ctx context.Context, id string) (models.Task, error)
	ListTasks(ctx context.Context, q repository.TaskQuery) ([]models.Task, error)
	DeleteTasks(ctx context.Context, ids []string) (int64, error)
	DeleteTasksByProject(ctx context.Context, projectID string) (int64, error)
	DeleteProject(ctx context.Context, id string) error
}

// Manager walks and prunes task trees through a Store.
type Manager struct {
	store Store
}

// New returns a Manager backed by store.
func New(store Store) *Manager {
	return &Manager{store: store}
}

// PrepareNew fills defaults on a task that is about to be created.
func PrepareNew(t *models.Task, now time.Time) {
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	t.CompletedAt = nil
	if t.Status == models.StatusCompleted {
		completed := now
		t.CompletedAt = &completed
	}
	t.CreatedAt = now
	t.UpdatedAt = now
}

// ApplyStatus moves t to status and keeps CompletedAt in step with it.
// Re-completing an already completed task keeps the original timestamp.
func ApplyStatus(t *models.Task, status models.Status, now time.Time) {
	switch {
	case status != models.StatusCompleted:
		t.CompletedAt = nil
	case t.Status != models.StatusCompleted || t.CompletedAt == nil:
		completed := now
		t.CompletedAt = &completed
	}
	t.Status = status
}

// ValidateParent checks that parentID may become the parent of t.
func (m *Manager) ValidateParent(ctx context.Context, t models.Task, parentID string) error {
	if parentID == t.ID {
		return apperr.InvalidHierarchy("A task cannot be its own parent")
	}
	parent, err := m.store.GetTask(ctx, parentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.InvalidHierarchy("Parent task not found")
	}
	if err != nil {
		return err
	}
	if parent.ProjectID != t.ProjectID {
		return apperr.InvalidHierarchy("Parent task must belong to the same project")
	}

	cur := parent
	for depth := 0; depth < MaxDepth; depth++ {
		if cur.ParentTaskID == nil {
			return nil
		}
		if *cur.ParentTaskID == t.ID {
			return apperr.InvalidHierarchy("A task cannot be moved under its own subtask")
		}
		cur, err = m.store.GetTask(ctx, *cur.ParentTaskID)
		if errors.Is(err, apperr.ErrNotFound) {
			// dangling ancestor; the chain ends here
			return nil
		}
		if err != nil {
			return err
		}
	}
	return apperr.InvalidHierarchy("Task hierarchy is too deep")
}

// ListChildren returns the direct subtasks of taskID.
func (m *Manager) ListChildren(ctx context.Context, taskID string) ([]models.Task, error) {
	return m.store.ListTasks(ctx, repository.TaskQuery{ParentTaskID: &taskID})
}

// ListRootTasks returns the tasks of projectID that have no parent.
func (m *Manager) ListRootTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	return m.store.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{projectID}, RootOnly: true})
}

// Descendants returns every task below taskID, breadth first.
func (m *Manager) Descendants(ctx context.Context, taskID string) ([]models.Task, error) {
	var out []models.Task
	seen := map[string]bool{taskID: true}
	queue := []string{taskID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := m.ListChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out, nil
}

// DeleteTask removes taskID and all of its descendants and returns the ids
// that were removed. The steps are not transactional.
func (m *Manager) DeleteTask(ctx context.Context, taskID string) ([]string, error) {
	desc, err := m.Descendants(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(desc)+1)
	ids = append(ids, taskID)
	for _, d := range desc {
		ids = append(ids, d.ID)
	}
	if _, err := m.store.DeleteTasks(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteProjectCascade removes every task of projectID, then the project.
func (m *Manager) DeleteProjectCascade(ctx context.Context, projectID string) (int64, error) {
	n, err := m.store.DeleteTasksByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if err := m.store.DeleteProject(ctx, projectID); err != nil {
		return n, err
	}
	return n, nil
}
