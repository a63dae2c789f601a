package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

type stubAuth map[string]models.Identity

func (s stubAuth) Authenticate(token string) (models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return models.Identity{}, apperr.Unauthenticated("Invalid token")
	}
	return id, nil
}

var tokens = stubAuth{
	"user-token":  {ID: "u1", Email: "u1@example.com", Role: models.RoleUser},
	"admin-token": {ID: "a1", Email: "a1@example.com", Role: models.RoleAdmin},
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: HandleError})
	app.Use(ErrorHandler())
	whoami := func(c *fiber.Ctx) error { return c.JSON(Identity(c)) }
	app.Get("/me", UseToken(tokens), whoami)
	app.Get("/ws", UseQueryToken(tokens), whoami)
	app.Get("/admin", UseToken(tokens), AdminOnly, whoami)
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })
	app.Get("/fail", func(*fiber.Ctx) error { return errors.New("db is down") })
	app.Get("/invalid", func(*fiber.Ctx) error {
		return apperr.ValidationFields("Validation error", map[string]string{"title": "is required"})
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestUseToken(t *testing.T) {
	app := newApp()

	status, body := do(t, app, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", body["message"])
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 401, body["status"])

	status, body = do(t, app, "/me", "Token user-token")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token format", body["message"])

	status, body = do(t, app, "/me", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body["message"])

	status, body = do(t, app, "/me", "Bearer user-token")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body["id"])
}

func TestUseQueryToken(t *testing.T) {
	app := newApp()

	status, _ := do(t, app, "/ws", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := do(t, app, "/ws?token=admin-token", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a1", body["id"])
}

func TestAdminOnly(t *testing.T) {
	app := newApp()

	status, body := do(t, app, "/admin", "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", body["message"])

	status, _ = do(t, app, "/admin", "Bearer admin-token")
	assert.Equal(t, http.StatusOK, status)
}

func TestErrorRendering(t *testing.T) {
	app := newApp()

	status, body := do(t, app, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"])

	status, body = do(t, app, "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"], "internal details are not leaked")

	status, body = do(t, app, "/invalid", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]any{"title": "is required"}, body["errors"])

	status, body = do(t, app, "/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:       400,
		apperr.KindInvalidHierarchy: 400,
		apperr.KindUnauthenticated:  401,
		apperr.KindForbidden:        403,
		apperr.KindNotFound:         404,
		apperr.KindConflict:         409,
		apperr.KindInternal:         500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusOf(kind), kind.String())
	}
}
