package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"projectmanager/internal/api/v1/handlers"
	"projectmanager/internal/middleware"
)

func RegisterRoutes(app *fiber.App, h *handlers.Handler, auth middleware.Authenticator) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "OK", "success": true, "status": fiber.StatusOK})
	})

	api := app.Group("/api/v1")
	useToken := middleware.UseToken(auth)

	// Auth
	api.Post("/register", h.Register)
	api.Post("/login", h.Login)
	api.Get("/auth/me", useToken, h.Me)

	// User
	api.Get("/users", useToken, h.ListUsers)
	api.Get("/dashboard", useToken, h.Dashboard)
	api.Get("/settings", useToken, h.GetSettings)
	api.Put("/settings", useToken, h.UpdateSettings)

	// Project
	projectRoutes := api.Group("/projects", useToken)
	projectRoutes.Get("/", h.ListProjects)
	projectRoutes.Post("/", h.CreateProject)
	projectRoutes.Get("/:id", h.GetProject)
	projectRoutes.Put("/:id", h.UpdateProject)
	projectRoutes.Delete("/:id", h.DeleteProject)
	projectRoutes.Get("/:id/gantt", h.ProjectTimeline)

	// Task
	taskRoutes := api.Group("/tasks", useToken)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	// Admin
	adminRoutes := api.Group("/admin", useToken, middleware.AdminOnly)
	adminRoutes.Get("/stats", h.AdminStats)
	adminRoutes.Get("/users", h.AdminListUsers)
	adminRoutes.Post("/users", h.AdminCreateUser)

	// Realtime
	api.Get("/ws/projects/:id", middleware.UseQueryToken(auth), h.UpgradeProject, websocket.New(h.ProjectEvents))
}
