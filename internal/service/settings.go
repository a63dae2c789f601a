package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

type SettingsPatch struct {
	Theme                *string           `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language             *string           `json:"language" validate:"omitempty,oneof=en ru"`
	NotificationsEnabled *bool             `json:"notifications_enabled"`
	ProjectColors        []string          `json:"project_colors" validate:"omitempty,dive,hexcolor"`
	TaskColors           map[string]string `json:"task_colors" validate:"omitempty,dive,keys,oneof=low medium high,endkeys,hexcolor"`
}

// GetSettings returns the caller's settings, creating the defaults when the
// user has none yet.
func (s *Service) GetSettings(ctx context.Context, id models.Identity) (models.Settings, error) {
	if err := authz.RequireIdentity(id); err != nil {
		return models.Settings{}, err
	}
	settings, err := s.store.GetSettings(ctx, id.ID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.Settings{}, err
	}

	settings = models.DefaultSettings(id.ID, s.now().UTC())
	settings.ID = s.newID()
	err = s.store.CreateSettings(ctx, settings)
	if errors.Is(err, apperr.ErrConflict) {
		// created concurrently
		return s.store.GetSettings(ctx, id.ID)
	}
	if err != nil {
		logger.ErrorLogger.Error("Error creating default settings", zap.String("user_id", id.ID), zap.Error(err))
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, id models.Identity, patch SettingsPatch) (models.Settings, error) {
	if err := s.check(patch); err != nil {
		return models.Settings{}, err
	}
	settings, err := s.GetSettings(ctx, id)
	if err != nil {
		return models.Settings{}, err
	}

	if patch.Theme != nil && *patch.Theme != "" {
		settings.Theme = *patch.Theme
	}
	if patch.Language != nil && *patch.Language != "" {
		settings.Language = *patch.Language
	}
	if patch.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if len(patch.ProjectColors) > 0 {
		settings.ColorPalette.ProjectColors = patch.ProjectColors
	}
	if len(patch.TaskColors) > 0 {
		colors := make(map[string]string, len(settings.ColorPalette.TaskColors)+len(patch.TaskColors))
		for k, v := range settings.ColorPalette.TaskColors {
			colors[k] = v
		}
		for k, v := range patch.TaskColors {
			colors[k] = v
		}
		settings.ColorPalette.TaskColors = colors
	}
	settings.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return models.Settings{}, err
	}
	logger.AuditLogger.Info("Settings updated", zap.String("user_id", id.ID))
	return settings, nil
}
