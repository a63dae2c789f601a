// Package service implements the project and task operations. Every method
// takes the caller's identity explicitly; nothing is read from ambient
// request state.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/auth"
	"projectmanager/internal/cache"
	"projectmanager/internal/hierarchy"
	"projectmanager/internal/models"
	"projectmanager/internal/repository"
	"projectmanager/pkg/logger"
)

// Notifier receives an event after every successful project or task change.
type Notifier interface {
	Publish(event models.ProjectEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(models.ProjectEvent) {}

type Deps struct {
	Store    repository.Store
	Cache    cache.Cache
	Tokens   *auth.TokenIssuer
	Notifier Notifier
	Validate *validator.Validate
	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

type Service struct {
	store    repository.Store
	tree     *hierarchy.Manager
	cache    cache.Cache
	tokens   *auth.TokenIssuer
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

func New(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		tree:     hierarchy.New(d.Store),
		cache:    d.Cache,
		tokens:   d.Tokens,
		notifier: d.Notifier,
		validate: d.Validate,
		now:      d.Now,
		newID:    d.NewID,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.validate == nil {
		s.validate = NewValidator()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) Validator() *validator.Validate { return s.validate }

// parseID rejects ids that are not UUIDs before they reach the store.
func parseID(id, what string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Validation("Invalid " + what + " ID")
	}
	return parsed.String(), nil
}

// loadProject reads a project through the cache.
func (s *Service) loadProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	found, err := s.cache.Get(ctx, cache.ProjectKey(id), &p)
	if err != nil {
		logger.ErrorLogger.Error("Error reading project from cache", zap.String("project_id", id), zap.Error(err))
	}
	if found {
		return p, nil
	}

	p, err = s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if err := s.cache.Set(ctx, cache.ProjectKey(id), p, cache.DefaultTTL); err != nil {
		logger.ErrorLogger.Error("Error caching project", zap.String("project_id", id), zap.Error(err))
	}
	return p, nil
}

func (s *Service) forgetProject(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.ProjectKey(id)); err != nil {
		logger.ErrorLogger.Error("Error invalidating project cache", zap.String("project_id", id), zap.Error(err))
	}
}

// summaries resolves user ids to identity summaries, consulting the cache
// first. Unknown ids are absent from the result.
func (s *Service) summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	var missing []string
	for _, id := range ids {
		if _, ok := out[id]; ok || id == "" {
			continue
		}
		var u models.UserSummary
		found, err := s.cache.Get(ctx, cache.UserKey(id), &u)
		if err != nil {
			logger.ErrorLogger.Error("Error reading user from cache", zap.String("user_id", id), zap.Error(err))
		}
		if found {
			out[id] = u
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := s.store.UserSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		out[u.ID] = u
		if err := s.cache.Set(ctx, cache.UserKey(u.ID), u, cache.DefaultTTL); err != nil {
			logger.ErrorLogger.Error("Error caching user", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	return out, nil
}

// requireUser fails with a validation error naming field when id does not
// refer to an existing user.
func (s *Service) requireUser(ctx context.Context, id, field string) error {
	found, err := s.summaries(ctx, []string{id})
	if err != nil {
		return err
	}
	if _, ok := found[id]; !ok {
		return apperr.ValidationFields("Validation error", map[string]string{field: "user not found"})
	}
	return nil
}

func (s *Service) event(eventType models.EventType, actor models.Identity, projectID, taskID string) models.ProjectEvent {
	return models.ProjectEvent{
		Type:      eventType,
		ProjectID: projectID,
		TaskID:    taskID,
		ActorID:   actor.ID,
		At:        s.now().UTC(),
	}
}

func (s *Service) publish(eventType models.EventType, actor models.Identity, projectID, taskID string) {
	s.notifier.Publish(s.event(eventType, actor, projectID, taskID))
}

// logDenied records authorization failures to the security log.
func logDenied(err error, id models.Identity, resource, resourceID string) error {
	if errors.Is(err, apperr.ErrForbidden) {
		logger.SecurityLogger.Warn("Access denied",
			zap.String("user_id", id.ID),
			zap.String("resource", resource),
			zap.String("resource_id", resourceID))
	}
	return err
}
