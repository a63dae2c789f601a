package handlers

import (
	"github.com/gofiber/fiber/v2"

	"projectmanager/internal/middleware"
	"projectmanager/internal/service"
)

func (h *Handler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.svc.ListProjectsFor(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, "Projects fetched successfully", projects)
}

func (h *Handler) GetProject(c *fiber.Ctx) error {
	p, err := h.svc.GetProject(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Project fetched successfully", p)
}

func (h *Handler) CreateProject(c *fiber.Ctx) error {
	var in service.ProjectInput
	if err := parseBody(c, &in, "create project"); err != nil {
		return err
	}
	p, err := h.svc.CreateProject(c.UserContext(), middleware.Identity(c), in)
	if err != nil {
		return err
	}
	return created(c, "Project created successfully", p)
}

func (h *Handler) UpdateProject(c *fiber.Ctx) error {
	var in service.ProjectInput
	if err := parseBody(c, &in, "update project"); err != nil {
		return err
	}
	p, err := h.svc.UpdateProject(c.UserContext(), middleware.Identity(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return ok(c, "Project updated successfully", p)
}

func (h *Handler) DeleteProject(c *fiber.Ctx) error {
	if err := h.svc.DeleteProject(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Project deleted successfully", nil)
}

func (h *Handler) ProjectTimeline(c *fiber.Ctx) error {
	tl, err := h.svc.ProjectTimeline(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Timeline fetched successfully", tl)
}
