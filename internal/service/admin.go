package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

type CreateUserInput struct {
	Name     string      `json:"name" validate:"required,max=255"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=admin user"`
}

func (s *Service) AdminStats(ctx context.Context, id models.Identity) (models.Stats, error) {
	if err := authz.RequireAdmin(id); err != nil {
		return models.Stats{}, logDenied(err, id, "admin", "stats")
	}
	return s.store.Stats(ctx, s.now().UTC())
}

func (s *Service) AdminListUsers(ctx context.Context, id models.Identity) ([]models.UserStats, error) {
	if err := authz.RequireAdmin(id); err != nil {
		return nil, logDenied(err, id, "admin", "users")
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserStats, 0, len(users))
	for _, u := range users {
		projects, err := s.store.CountOwnedProjects(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		tasks, err := s.store.CountAssignedTasks(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.UserStats{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Role:          u.Role,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
			ProjectsCount: projects,
			TasksCount:    tasks,
		})
	}
	return out, nil
}

func (s *Service) AdminCreateUser(ctx context.Context, id models.Identity, in CreateUserInput) (models.Profile, error) {
	if err := authz.RequireAdmin(id); err != nil {
		return models.Profile{}, logDenied(err, id, "admin", "users")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return models.Profile{}, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	u, err := s.createUser(ctx, RegisterInput{Name: in.Name, Email: in.Email, Password: in.Password}, role)
	if err != nil {
		return models.Profile{}, err
	}
	logger.AuditLogger.Info("User created by admin",
		zap.String("admin_id", id.ID), zap.String("user_id", u.ID), zap.String("role", string(role)))
	return u.Profile(), nil
}

// BootstrapAdmin creates an admin account without a calling identity. It is
// meant for the command line, before any admin exists.
func (s *Service) BootstrapAdmin(ctx context.Context, name, email, password string) (models.Profile, error) {
	u, err := s.createUser(ctx, RegisterInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return models.Profile{}, err
	}
	logger.AuditLogger.Info("Admin user created", zap.String("user_id", u.ID))
	return u.Profile(), nil
}
