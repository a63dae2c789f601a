package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"projectmanager/internal/apperr"
	"projectmanager/internal/middleware"
	"projectmanager/internal/service"
)

// ListTasks accepts projectId, parentTaskId ("null" for root tasks), status,
// priority, assignedTo ("me" for the caller) and limit.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	f := service.TaskFilter{
		ProjectID:    c.Query("projectId"),
		ParentTaskID: c.Query("parentTaskId"),
		Status:       c.Query("status"),
		Priority:     c.Query("priority"),
		AssignedTo:   c.Query("assignedTo"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.ValidationFields("Validation error", map[string]string{"limit": "must be a number"})
		}
		f.Limit = limit
	}

	tasks, err := h.svc.ListTasks(c.UserContext(), middleware.Identity(c), f)
	if err != nil {
		return err
	}
	return ok(c, "Tasks fetched successfully", tasks)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	task, err := h.svc.GetTaskDetail(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Task fetched successfully", task)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var in service.CreateTaskInput
	if err := parseBody(c, &in, "create task"); err != nil {
		return err
	}
	task, err := h.svc.CreateTask(c.UserContext(), middleware.Identity(c), in)
	if err != nil {
		return err
	}
	return created(c, "Task created successfully", task)
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	var patch service.TaskPatch
	if err := parseBody(c, &patch, "update task"); err != nil {
		return err
	}
	task, err := h.svc.UpdateTask(c.UserContext(), middleware.Identity(c), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return ok(c, "Task updated successfully", task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	if err := h.svc.DeleteTask(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Task deleted successfully", nil)
}
