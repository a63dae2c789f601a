package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

func TestGetSettingsCreatesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := models.Identity{ID: "0b5c8f1e-8a9a-4d36-9a4e-3f2d1c0b9a88", Role: models.RoleUser}

	s, err := f.svc.GetSettings(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id.ID, s.UserID)
	assert.Equal(t, "system", s.Theme)
	assert.Equal(t, "en", s.Language)
	assert.True(t, s.NotificationsEnabled)
	assert.Equal(t, models.DefaultProjectColors(), s.ColorPalette.ProjectColors)
	assert.Equal(t, "#EF4444", s.ColorPalette.TaskColors["high"])

	again, err := f.svc.GetSettings(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID, "created once")
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	off := false
	s, err := f.svc.UpdateSettings(ctx, alice, SettingsPatch{
		Theme:                ptr("dark"),
		NotificationsEnabled: &off,
		TaskColors:           map[string]string{"low": "#000000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, "en", s.Language, "absent fields are kept")
	assert.False(t, s.NotificationsEnabled)
	assert.Equal(t, "#000000", s.ColorPalette.TaskColors["low"])
	assert.Equal(t, "#EF4444", s.ColorPalette.TaskColors["high"], "task colors are merged")

	stored, err := f.svc.GetSettings(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, s, stored)

	_, err = f.svc.UpdateSettings(ctx, alice, SettingsPatch{
		Theme:         ptr("neon"),
		Language:      ptr("fr"),
		ProjectColors: []string{"red"},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	got := fields(t, err)
	assert.Equal(t, "must be one of: light, dark, system", got["theme"])
	assert.Equal(t, "must be one of: en, ru", got["language"])
	assert.Equal(t, "must be a hex color", got["project_colors[0]"])

	_, err = f.svc.GetSettings(ctx, models.Identity{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
