package handlers

import (
	"github.com/gofiber/fiber/v2"

	"projectmanager/internal/middleware"
	"projectmanager/internal/service"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := parseBody(c, &in, "register"); err != nil {
		return err
	}
	profile, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, "User registered successfully", profile)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := parseBody(c, &in, "login"); err != nil {
		return err
	}
	res, err := h.svc.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, "Login successful", res)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	profile, err := h.svc.Me(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "User fetched successfully", profile)
}
