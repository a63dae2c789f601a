package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/pkg/logger"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidHierarchy:
		return fiber.StatusBadRequest
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError is the app's fiber.Config.ErrorHandler. It writes the
// standard envelope for any error a handler returns.
func HandleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
			"success": false,
			"status":  fe.Code,
		})
	}

	e := apperr.As(err)
	status := StatusOf(e.Kind)
	message := e.Message
	if status == fiber.StatusInternalServerError {
		logger.ErrorLogger.Error("Internal error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		message = "Internal server error"
	}

	body := fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	return c.Status(status).JSON(body)
}
