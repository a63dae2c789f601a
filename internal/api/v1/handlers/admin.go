package handlers

import (
	"github.com/gofiber/fiber/v2"

	"projectmanager/internal/middleware"
	"projectmanager/internal/service"
)

func (h *Handler) AdminStats(c *fiber.Ctx) error {
	stats, err := h.svc.AdminStats(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Stats fetched successfully", stats)
}

func (h *Handler) AdminListUsers(c *fiber.Ctx) error {
	users, err := h.svc.AdminListUsers(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Users fetched successfully", users)
}

func (h *Handler) AdminCreateUser(c *fiber.Ctx) error {
	var in service.CreateUserInput
	if err := parseBody(c, &in, "create user"); err != nil {
		return err
	}
	profile, err := h.svc.AdminCreateUser(c.UserContext(), middleware.Identity(c), in)
	if err != nil {
		return err
	}
	return created(c, "User created successfully", profile)
}
