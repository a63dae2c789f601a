package service

import (
	"context"

	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

// DashboardAssignedLimit caps the assigned-to-me list of the dashboard.
const DashboardAssignedLimit = 5

// Dashboard summarizes the tasks of every project the caller can access.
func (s *Service) Dashboard(ctx context.Context, id models.Identity) (models.Dashboard, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.Dashboard{}, err
	}
	projects, err := s.store.ListProjectsForUser(ctx, id.ID)
	if err != nil {
		return models.Dashboard{}, err
	}
	byID := make(map[string]models.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	tasks, err := s.store.ListTasks(ctx, repository.TaskQuery{ProjectIDs: ids})
	if err != nil {
		return models.Dashboard{}, err
	}

	now := s.now().UTC()
	d := models.Dashboard{ProjectsCount: len(projects), TotalTasks: len(tasks)}
	var mine []models.Task
	for _, t := range tasks {
		switch t.Status {
		case models.StatusPending:
			d.PendingTasks++
		case models.StatusInProgress:
			d.InProgressTasks++
		case models.StatusCompleted:
			d.CompletedTasks++
		}
		if isOverdue(t, now) {
			d.OverdueTasks++
		}
		if t.AssignedToID != nil && *t.AssignedToID == id.ID {
			mine = append(mine, t)
		}
	}
	d.Progress = progress(d.CompletedTasks, d.TotalTasks)

	// most recently created first
	recent := make([]models.Task, 0, DashboardAssignedLimit)
	for i := len(mine) - 1; i >= 0 && len(recent) < DashboardAssignedLimit; i-- {
		recent = append(recent, mine[i])
	}
	d.AssignedToMe, err = s.taskViews(ctx, recent, byID)
	if err != nil {
		return models.Dashboard{}, err
	}
	return d, nil
}
