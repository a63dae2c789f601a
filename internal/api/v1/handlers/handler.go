// Package handlers adapts the service layer to HTTP. Handlers return errors
// and leave rendering to middleware.HandleError.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"projectmanager/internal/apperr"
	"projectmanager/internal/service"
	myws "projectmanager/internal/websocket"
	"projectmanager/pkg/logger"
)

type Handler struct {
	svc *service.Service
	hub *myws.Hub
}

// New returns handlers over svc. hub may be nil, which disables the
// realtime endpoint.
func New(svc *service.Service, hub *myws.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  fiber.StatusOK,
		"data":    data,
	})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  fiber.StatusCreated,
		"data":    data,
	})
}

// parseBody decodes the JSON request body into dst.
func parseBody(c *fiber.Ctx, dst any, what string) error {
	if err := c.BodyParser(dst); err != nil {
		logger.ErrorLogger.Error("Bad request in "+what, zap.Error(err))
		return apperr.Validation("Invalid request body")
	}
	return nil
}
