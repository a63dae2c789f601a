package service

import (
	"context"
	"math"
	"time"

	"projectmanager/internal/models"
	"projectmanager/internal/repository"
)

const day = 24 * time.Hour

// spanDays is the length of [start, end] in whole days, rounded up, never
// less than one.
func spanDays(start, end time.Time) int {
	d := int(math.Ceil(float64(end.Sub(start)) / float64(day)))
	if d < 1 {
		return 1
	}
	return d
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// isOverdue reports whether t was due on a day before today and is still
// open.
func isOverdue(t models.Task, now time.Time) bool {
	return t.Status != models.StatusCompleted && truncateDay(t.DueDate).Before(truncateDay(now))
}

func progress(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ProjectTimeline returns one bar per task of the project, each root
// followed by its subtree.
func (s *Service) ProjectTimeline(ctx context.Context, id models.Identity, projectID string) (models.Timeline, error) {
	p, err := s.accessibleProject(ctx, id, projectID)
	if err != nil {
		return models.Timeline{}, err
	}
	tasks, err := s.store.ListTasks(ctx, repository.TaskQuery{ProjectIDs: []string{p.ID}})
	if err != nil {
		return models.Timeline{}, err
	}

	now := s.now().UTC()
	tl := models.Timeline{
		Project:      models.ProjectRef{ID: p.ID, Name: p.Name},
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		DurationDays: spanDays(p.StartDate, p.EndDate),
		Bars:         make([]models.TimelineBar, 0, len(tasks)),
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	children := map[string][]models.Task{}
	var roots []models.Task
	for _, t := range tasks {
		if t.ParentTaskID != nil && known[*t.ParentTaskID] {
			children[*t.ParentTaskID] = append(children[*t.ParentTaskID], t)
			continue
		}
		roots = append(roots, t)
	}

	completed := 0
	var walk func(t models.Task)
	walk = func(t models.Task) {
		if t.Status == models.StatusCompleted {
			completed++
		}
		tl.Bars = append(tl.Bars, models.TimelineBar{
			TaskID:       t.ID,
			Title:        t.Title,
			ParentTaskID: t.ParentTaskID,
			IsSubtask:    t.ParentTaskID != nil,
			Status:       t.Status,
			Priority:     t.Priority,
			OffsetDays:   int(math.Floor(float64(t.StartDate.Sub(p.StartDate)) / float64(day))),
			DurationDays: spanDays(t.StartDate, t.DueDate),
			Overdue:      isOverdue(t, now),
		})
		for _, c := range children[t.ID] {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}

	tl.Progress = progress(completed, len(tasks))
	return tl, nil
}
