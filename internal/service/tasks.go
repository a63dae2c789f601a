package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/authz"
	"projectmanager/internal/hierarchy"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
	"projectmanager/pkg/logger"
)

// MaxTaskLimit caps the limit accepted by ListTasks.
const MaxTaskLimit = 500

type CreateTaskInput struct {
	Title        string          `json:"title" validate:"required,max=255"`
	Description  string          `json:"description"`
	ProjectID    string          `json:"project_id" validate:"required,uuid"`
	ParentTaskID *string         `json:"parent_task_id" validate:"omitempty,uuid"`
	AssignedToID *string         `json:"assigned_to_id" validate:"omitempty,uuid"`
	ReviewedByID *string         `json:"reviewed_by_id" validate:"omitempty,uuid"`
	Priority     models.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status       models.Status   `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	StartDate    time.Time       `json:"start_date" validate:"required"`
	DueDate      time.Time       `json:"due_date" validate:"required,gtefield=StartDate"`
}

// TaskPatch is a partial task update. Nil pointers and unset OptionalIDs
// leave the field untouched.
type TaskPatch struct {
	Title        *string          `json:"title" validate:"omitempty,max=255"`
	Description  *string          `json:"description"`
	ParentTaskID OptionalID       `json:"parent_task_id"`
	AssignedToID OptionalID       `json:"assigned_to_id"`
	ReviewedByID OptionalID       `json:"reviewed_by_id"`
	Priority     *models.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status       *models.Status   `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	StartDate    *time.Time       `json:"start_date"`
	DueDate      *time.Time       `json:"due_date"`
}

// TaskFilter holds the raw listing parameters. ParentTaskID "null" selects
// root tasks; AssignedTo "me" selects the caller.
type TaskFilter struct {
	ProjectID    string
	ParentTaskID string
	Status       string
	Priority     string
	AssignedTo   string
	Limit        int
}

func (s *Service) ListTasks(ctx context.Context, id models.Identity, f TaskFilter) ([]models.TaskView, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return nil, err
	}
	q, err := s.taskQuery(id, f)
	if err != nil {
		return nil, err
	}

	projects := map[string]models.Project{}
	if f.ProjectID != "" {
		projectID, err := parseID(f.ProjectID, "project")
		if err != nil {
			return nil, err
		}
		p, err := s.loadProject(ctx, projectID)
		if errors.Is(err, apperr.ErrNotFound) {
			// a filter on a project that does not exist matches nothing
			return []models.TaskView{}, nil
		}
		if err != nil {
			return nil, err
		}
		if err := authz.RequireProjectAccess(id, p); err != nil {
			return nil, logDenied(err, id, "project", p.ID)
		}
		projects[p.ID] = p
		q.ProjectIDs = []string{p.ID}
	} else {
		accessible, err := s.store.ListProjectsForUser(ctx, id.ID)
		if err != nil {
			return nil, err
		}
		q.ProjectIDs = make([]string, 0, len(accessible))
		for _, p := range accessible {
			projects[p.ID] = p
			q.ProjectIDs = append(q.ProjectIDs, p.ID)
		}
	}

	tasks, err := s.store.ListTasks(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.taskViews(ctx, tasks, projects)
}

func (s *Service) taskQuery(id models.Identity, f TaskFilter) (repository.TaskQuery, error) {
	var q repository.TaskQuery
	fields := map[string]string{}

	switch f.ParentTaskID {
	case "":
	case "null":
		q.RootOnly = true
	default:
		parent, err := parseID(f.ParentTaskID, "parent task")
		if err != nil {
			fields["parentTaskId"] = "must be a valid id or null"
		} else {
			q.ParentTaskID = &parent
		}
	}

	switch st := models.Status(f.Status); st {
	case "":
	case models.StatusPending, models.StatusInProgress, models.StatusCompleted:
		q.Status = st
	default:
		fields["status"] = "must be one of: pending, in_progress, completed"
	}

	switch p := models.Priority(f.Priority); p {
	case "":
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		q.Priority = p
	default:
		fields["priority"] = "must be one of: low, medium, high"
	}

	switch f.AssignedTo {
	case "":
	case "me":
		q.AssignedTo = id.ID
	default:
		assignee, err := parseID(f.AssignedTo, "user")
		if err != nil {
			fields["assignedTo"] = "must be a valid id or me"
		} else {
			q.AssignedTo = assignee
		}
	}

	switch {
	case f.Limit < 0:
		fields["limit"] = "must not be negative"
	case f.Limit > MaxTaskLimit:
		q.Limit = MaxTaskLimit
	default:
		q.Limit = f.Limit
	}

	if len(fields) > 0 {
		return q, apperr.ValidationFields("Validation error", fields)
	}
	return q, nil
}

// checkReferences validates the optional user references of a task.
func (s *Service) checkReferences(ctx context.Context, assignee, reviewer *string) error {
	if assignee != nil {
		if err := s.requireUser(ctx, *assignee, "assigned_to_id"); err != nil {
			return err
		}
	}
	if reviewer != nil {
		if err := s.requireUser(ctx, *reviewer, "reviewed_by_id"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) CreateTask(ctx context.Context, id models.Identity, in CreateTaskInput) (models.TaskView, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.TaskView{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ProjectID = strings.ToLower(strings.TrimSpace(in.ProjectID))
	in.ParentTaskID = lowerOrNil(in.ParentTaskID)
	in.AssignedToID = lowerOrNil(in.AssignedToID)
	in.ReviewedByID = lowerOrNil(in.ReviewedByID)
	if err := s.check(in); err != nil {
		return models.TaskView{}, err
	}

	p, err := s.accessibleProject(ctx, id, in.ProjectID)
	if err != nil {
		return models.TaskView{}, err
	}

	t := models.Task{
		ID:           s.newID(),
		Title:        in.Title,
		Description:  in.Description,
		ProjectID:    p.ID,
		ParentTaskID: in.ParentTaskID,
		AssignedToID: in.AssignedToID,
		ReviewedByID: in.ReviewedByID,
		Priority:     in.Priority,
		Status:       in.Status,
		StartDate:    in.StartDate,
		DueDate:      in.DueDate,
	}
	hierarchy.PrepareNew(&t, s.now().UTC())
	if t.ParentTaskID != nil {
		if err := s.tree.ValidateParent(ctx, t, *t.ParentTaskID); err != nil {
			return models.TaskView{}, err
		}
	}
	if err := s.checkReferences(ctx, t.AssignedToID, t.ReviewedByID); err != nil {
		return models.TaskView{}, err
	}
	if err := s.store.CreateTask(ctx, &t); err != nil {
		return models.TaskView{}, err
	}
	s.publish(models.EventTaskCreated, id, p.ID, t.ID)

	logger.AuditLogger.Info("Task created",
		zap.String("task_id", t.ID), zap.String("project_id", p.ID), zap.String("user_id", id.ID))
	return s.taskView(ctx, t, p)
}

// taskWithProject loads a task and the project it belongs to.
func (s *Service) taskWithProject(ctx context.Context, id models.Identity, taskID string) (models.Task, models.Project, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.Task{}, models.Project{}, err
	}
	taskID, err := parseID(taskID, "task")
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	p, err := s.loadProject(ctx, t.ProjectID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Task{}, models.Project{}, apperr.NotFound("Associated project not found")
	}
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	return t, p, nil
}

func (s *Service) UpdateTask(ctx context.Context, id models.Identity, taskID string, patch TaskPatch) (models.TaskView, error) {
	t, p, err := s.taskWithProject(ctx, id, taskID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := authz.RequireTaskMutation(id, t, p); err != nil {
		return models.TaskView{}, logDenied(err, id, "task", t.ID)
	}
	if err := s.check(patch); err != nil {
		return models.TaskView{}, err
	}

	now := s.now().UTC()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.TaskView{}, apperr.ValidationFields("Validation error", map[string]string{"title": "is required"})
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil && *patch.Priority != "" {
		t.Priority = *patch.Priority
	}
	if patch.Status != nil && *patch.Status != "" {
		hierarchy.ApplyStatus(&t, *patch.Status, now)
	}
	if patch.StartDate != nil {
		t.StartDate = *patch.StartDate
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if t.DueDate.Before(t.StartDate) {
		return models.TaskView{}, apperr.ValidationFields("Validation error",
			map[string]string{"due_date": "must not be before start_date"})
	}

	refs := []struct {
		field string
		patch OptionalID
		dst   **string
	}{
		{"assigned_to_id", patch.AssignedToID, &t.AssignedToID},
		{"reviewed_by_id", patch.ReviewedByID, &t.ReviewedByID},
	}
	for _, r := range refs {
		if !r.patch.Set {
			continue
		}
		if r.patch.Value == nil {
			*r.dst = nil
			continue
		}
		userID, err := parseID(*r.patch.Value, "user")
		if err != nil {
			return models.TaskView{}, apperr.ValidationFields("Validation error", map[string]string{r.field: "must be a valid id"})
		}
		if err := s.requireUser(ctx, userID, r.field); err != nil {
			return models.TaskView{}, err
		}
		*r.dst = &userID
	}

	if patch.ParentTaskID.Set {
		if patch.ParentTaskID.Value == nil {
			t.ParentTaskID = nil
		} else {
			parentID, err := parseID(*patch.ParentTaskID.Value, "parent task")
			if err != nil {
				return models.TaskView{}, err
			}
			if err := s.tree.ValidateParent(ctx, t, parentID); err != nil {
				return models.TaskView{}, err
			}
			t.ParentTaskID = &parentID
		}
	}

	t.UpdatedAt = now
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return models.TaskView{}, err
	}
	s.publish(models.EventTaskUpdated, id, p.ID, t.ID)

	logger.AuditLogger.Info("Task updated", zap.String("task_id", t.ID), zap.String("user_id", id.ID))
	return s.taskView(ctx, t, p)
}

// DeleteTask removes a task and its whole subtree.
func (s *Service) DeleteTask(ctx context.Context, id models.Identity, taskID string) error {
	t, p, err := s.taskWithProject(ctx, id, taskID)
	if err != nil {
		return err
	}
	if err := authz.RequireTaskMutation(id, t, p); err != nil {
		return logDenied(err, id, "task", t.ID)
	}

	removed, err := s.tree.DeleteTask(ctx, t.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.String("task_id", t.ID), zap.Error(err))
		return err
	}
	s.publish(models.EventTaskDeleted, id, p.ID, t.ID)

	logger.AuditLogger.Info("Task deleted",
		zap.String("task_id", t.ID), zap.String("user_id", id.ID), zap.Int("tasks_removed", len(removed)))
	return nil
}

// GetTaskDetail returns a task with its direct children.
func (s *Service) GetTaskDetail(ctx context.Context, id models.Identity, taskID string) (models.TaskDetail, error) {
	t, p, err := s.taskWithProject(ctx, id, taskID)
	if err != nil {
		return models.TaskDetail{}, err
	}
	if err := authz.RequireTaskAccess(id, t, p); err != nil {
		return models.TaskDetail{}, logDenied(err, id, "task", t.ID)
	}

	children, err := s.tree.ListChildren(ctx, t.ID)
	if err != nil {
		return models.TaskDetail{}, err
	}
	views, err := s.taskViews(ctx, append([]models.Task{t}, children...), map[string]models.Project{p.ID: p})
	if err != nil {
		return models.TaskDetail{}, err
	}
	return models.TaskDetail{TaskView: views[0], SubTasks: views[1:]}, nil
}

func (s *Service) taskView(ctx context.Context, t models.Task, p models.Project) (models.TaskView, error) {
	views, err := s.taskViews(ctx, []models.Task{t}, map[string]models.Project{p.ID: p})
	if err != nil {
		return models.TaskView{}, err
	}
	return views[0], nil
}

// taskViews resolves the project, parent and user references of tasks with
// batched lookups. projects may already hold some of the projects.
func (s *Service) taskViews(ctx context.Context, tasks []models.Task, projects map[string]models.Project) ([]models.TaskView, error) {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var userIDs, missingParents, missingProjects []string
	for _, t := range tasks {
		if t.AssignedToID != nil {
			userIDs = append(userIDs, *t.AssignedToID)
		}
		if t.ReviewedByID != nil {
			userIDs = append(userIDs, *t.ReviewedByID)
		}
		if t.ParentTaskID != nil {
			if _, ok := byID[*t.ParentTaskID]; !ok {
				missingParents = append(missingParents, *t.ParentTaskID)
			}
		}
		if _, ok := projects[t.ProjectID]; !ok {
			missingProjects = append(missingProjects, t.ProjectID)
		}
	}

	users, err := s.summaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(missingParents) > 0 {
		parents, err := s.store.TasksByIDs(ctx, missingParents)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			byID[p.ID] = p
		}
	}
	if len(missingProjects) > 0 {
		found, err := s.store.ProjectsByIDs(ctx, missingProjects)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			projects[p.ID] = p
		}
	}

	summary := func(id *string) *models.UserSummary {
		if id == nil {
			return nil
		}
		u, ok := users[*id]
		if !ok {
			return nil
		}
		return &u
	}

	out := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := models.TaskView{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Project:     models.ProjectRef{ID: t.ProjectID, Name: projects[t.ProjectID].Name},
			AssignedTo:  summary(t.AssignedToID),
			ReviewedBy:  summary(t.ReviewedByID),
			Priority:    t.Priority,
			Status:      t.Status,
			StartDate:   t.StartDate,
			DueDate:     t.DueDate,
			CompletedAt: t.CompletedAt,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if t.ParentTaskID != nil {
			ref := models.TaskRef{ID: *t.ParentTaskID}
			if parent, ok := byID[*t.ParentTaskID]; ok {
				ref.Title = parent.Title
			}
			v.ParentTask = &ref
		}
		out = append(out, v)
	}
	return out, nil
}
