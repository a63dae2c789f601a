package handlers

import (
	"github.com/gofiber/fiber/v2"

	"projectmanager/internal/middleware"
	"projectmanager/internal/service"
)

// ListUsers returns identity summaries of every user, for member pickers.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.svc.ListUsers(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Users fetched successfully", users)
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.svc.GetSettings(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Settings fetched successfully", settings)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var patch service.SettingsPatch
	if err := parseBody(c, &patch, "update settings"); err != nil {
		return err
	}
	settings, err := h.svc.UpdateSettings(c.UserContext(), middleware.Identity(c), patch)
	if err != nil {
		return err
	}
	return ok(c, "Settings updated successfully", settings)
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	d, err := h.svc.Dashboard(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Dashboard fetched successfully", d)
}
