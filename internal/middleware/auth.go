package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/authz"
	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

// IdentityKey is the locals key holding the caller's models.Identity.
const IdentityKey = "identity"

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(token string) (models.Identity, error)
}

// UseToken requires an "Authorization: Bearer <token>" header and stores
// the caller's identity in the request locals.
func UseToken(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthenticated("No token provided")
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperr.Unauthenticated("Invalid token format")
		}
		return authenticate(c, a, parts[1])
	}
}

// UseQueryToken reads the token from the "token" query parameter, for
// clients such as browsers opening a websocket that cannot set headers.
func UseQueryToken(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return apperr.Unauthenticated("No token provided")
		}
		return authenticate(c, a, token)
	}
}

func authenticate(c *fiber.Ctx, a Authenticator, token string) error {
	id, err := a.Authenticate(token)
	if err != nil {
		logger.SecurityLogger.Warn("Rejected token",
			zap.String("ip", c.IP()), zap.String("path", c.Path()), zap.Error(err))
		return err
	}
	c.Locals(IdentityKey, id)
	return c.Next()
}

// Identity returns the identity stored by UseToken, or the zero identity.
func Identity(c *fiber.Ctx) models.Identity {
	id, _ := c.Locals(IdentityKey).(models.Identity)
	return id
}

// AdminOnly must run after UseToken.
func AdminOnly(c *fiber.Ctx) error {
	id := Identity(c)
	if err := authz.RequireAdmin(id); err != nil {
		logger.SecurityLogger.Warn("Admin route denied", zap.String("user_id", id.ID), zap.String("path", c.Path()))
		return err
	}
	return c.Next()
}
