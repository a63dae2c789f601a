package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

// ProjectInput carries the fields of a create or a full update. An empty
// Color keeps the current color, or the default one on create.
type ProjectInput struct {
	Name        string    `json:"name" validate:"required,max=255"`
	Description string    `json:"description"`
	Members     []string  `json:"members" validate:"omitempty,dive,uuid"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Color       string    `json:"color" validate:"omitempty,hexcolor"`
}

func (in *ProjectInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	seen := make(map[string]bool, len(in.Members))
	members := make([]string, 0, len(in.Members))
	for _, m := range in.Members {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		members = append(members, m)
	}
	in.Members = members
}

func (s *Service) checkProjectInput(ctx context.Context, in *ProjectInput) error {
	in.normalize()
	if err := s.check(in); err != nil {
		return err
	}
	if len(in.Members) == 0 {
		return nil
	}
	found, err := s.summaries(ctx, in.Members)
	if err != nil {
		return err
	}
	for _, m := range in.Members {
		if _, ok := found[m]; !ok {
			return apperr.ValidationFields("Validation error", map[string]string{"members": "unknown user " + m})
		}
	}
	return nil
}

// projectViews resolves owners and members of projects in one lookup.
func (s *Service) projectViews(ctx context.Context, projects []models.Project) ([]models.ProjectView, error) {
	var ids []string
	for _, p := range projects {
		ids = append(ids, p.OwnerID)
		ids = append(ids, p.MemberIDs...)
	}
	users, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ProjectView, 0, len(projects))
	for _, p := range projects {
		owner, ok := users[p.OwnerID]
		if !ok {
			owner = models.UserSummary{ID: p.OwnerID}
		}
		members := make([]models.UserSummary, 0, len(p.MemberIDs))
		for _, m := range p.MemberIDs {
			if u, ok := users[m]; ok {
				members = append(members, u)
			}
		}
		out = append(out, models.ProjectView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Owner:       owner,
			Members:     members,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Color:       p.Color,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Service) projectView(ctx context.Context, p models.Project) (models.ProjectView, error) {
	views, err := s.projectViews(ctx, []models.Project{p})
	if err != nil {
		return models.ProjectView{}, err
	}
	return views[0], nil
}

// accessibleProject loads a project and checks that id may read it.
func (s *Service) accessibleProject(ctx context.Context, id models.Identity, projectID string) (models.Project, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.Project{}, err
	}
	projectID, err := parseID(projectID, "project")
	if err != nil {
		return models.Project{}, err
	}
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := authz.RequireProjectAccess(id, p); err != nil {
		return models.Project{}, logDenied(err, id, "project", p.ID)
	}
	return p, nil
}

func (s *Service) ListProjectsFor(ctx context.Context, id models.Identity) ([]models.ProjectView, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjectsForUser(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	return s.projectViews(ctx, projects)
}

func (s *Service) GetProject(ctx context.Context, id models.Identity, projectID string) (models.ProjectView, error) {
	p, err := s.accessibleProject(ctx, id, projectID)
	if err != nil {
		return models.ProjectView{}, err
	}
	return s.projectView(ctx, p)
}

func (s *Service) CreateProject(ctx context.Context, id models.Identity, in ProjectInput) (models.ProjectView, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.ProjectView{}, err
	}
	if err := s.checkProjectInput(ctx, &in); err != nil {
		return models.ProjectView{}, err
	}

	now := s.now().UTC()
	p := models.Project{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     id.ID,
		MemberIDs:   in.Members,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Color:       in.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Color == "" {
		p.Color = models.DefaultProjectColor
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return models.ProjectView{}, err
	}

	logger.AuditLogger.Info("Project created", zap.String("project_id", p.ID), zap.String("owner_id", id.ID))
	return s.projectView(ctx, p)
}

// UpdateProject replaces the editable fields of a project. The owner never
// changes.
func (s *Service) UpdateProject(ctx context.Context, id models.Identity, projectID string, in ProjectInput) (models.ProjectView, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.ProjectView{}, err
	}
	projectID, err := parseID(projectID, "project")
	if err != nil {
		return models.ProjectView{}, err
	}
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return models.ProjectView{}, err
	}
	if err := authz.RequireProjectOwner(id, p, "update"); err != nil {
		return models.ProjectView{}, logDenied(err, id, "project", p.ID)
	}
	if err := s.checkProjectInput(ctx, &in); err != nil {
		return models.ProjectView{}, err
	}

	p.Name = in.Name
	p.Description = in.Description
	p.MemberIDs = in.Members
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	if in.Color != "" {
		p.Color = in.Color
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return models.ProjectView{}, err
	}
	s.forgetProject(ctx, p.ID)
	event := s.event(models.EventProjectUpdated, id, p.ID, "")
	event.Audience = append([]string{p.OwnerID}, p.MemberIDs...)
	s.notifier.Publish(event)

	logger.AuditLogger.Info("Project updated", zap.String("project_id", p.ID), zap.String("user_id", id.ID))
	return s.projectView(ctx, p)
}

// DeleteProject removes a project and every task in it.
func (s *Service) DeleteProject(ctx context.Context, id models.Identity, projectID string) error {
	if err := authz.RequireIdentity(id); err != nil {
		return err
	}
	projectID, err := parseID(projectID, "project")
	if err != nil {
		return err
	}
	p, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := authz.RequireProjectOwner(id, p, "delete"); err != nil {
		return logDenied(err, id, "project", p.ID)
	}

	removed, err := s.tree.DeleteProjectCascade(ctx, p.ID)
	s.forgetProject(ctx, p.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting project",
			zap.String("project_id", p.ID), zap.Int64("tasks_removed", removed), zap.Error(err))
		return err
	}
	s.publish(models.EventProjectDeleted, id, p.ID, "")

	logger.AuditLogger.Info("Project deleted",
		zap.String("project_id", p.ID), zap.String("user_id", id.ID), zap.Int64("tasks_removed", removed))
	return nil
}
