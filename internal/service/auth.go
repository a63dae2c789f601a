package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/auth"
	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// createUser stores a new user with default settings.
func (s *Service) createUser(ctx context.Context, in RegisterInput, role models.Role) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return models.User{}, err
	}

	_, err := s.store.GetUserByEmail(ctx, in.Email)
	if err == nil {
		logger.SecurityLogger.Warn("Duplicate email", zap.String("email", in.Email))
		return models.User{}, apperr.Conflict("User with this email already exists")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	now := s.now().UTC()
	u := models.User{
		ID:           s.newID(),
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.User{}, apperr.Conflict("User with this email already exists")
		}
		return models.User{}, err
	}

	settings := models.DefaultSettings(u.ID, now)
	settings.ID = s.newID()
	if err := s.store.CreateSettings(ctx, settings); err != nil {
		// settings are recreated lazily on first read
		logger.ErrorLogger.Error("Error creating default settings", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Profile, error) {
	u, err := s.createUser(ctx, in, models.RoleUser)
	if err != nil {
		return models.Profile{}, err
	}
	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", u.ID))
	return u.Profile(), nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return LoginResult{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		logger.SecurityLogger.Warn("Login for unknown email", zap.String("email", in.Email))
		return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		logger.SecurityLogger.Warn("Invalid password", zap.String("user_id", u.ID))
		return LoginResult{}, apperr.Unauthenticated("Invalid credentials")
	}

	token, err := s.tokens.Issue(models.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return LoginResult{}, err
	}
	logger.AuditLogger.Info("Login success", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return LoginResult{Token: token, User: u.Profile()}, nil
}

// Authenticate resolves a bearer token to the caller's identity.
func (s *Service) Authenticate(token string) (models.Identity, error) {
	return s.tokens.Parse(token)
}

func (s *Service) Me(ctx context.Context, id models.Identity) (models.Profile, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.Profile{}, err
	}
	u, err := s.store.GetUser(ctx, id.ID)
	if err != nil {
		return models.Profile{}, err
	}
	return u.Profile(), nil
}

// ListUsers returns every user as an identity summary, for member pickers.
func (s *Service) ListUsers(ctx context.Context, id models.Identity) ([]models.UserSummary, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}
