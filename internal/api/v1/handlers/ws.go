package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"projectmanager/internal/middleware"
	"projectmanager/internal/models"
	myws "projectmanager/internal/websocket"
	"projectmanager/pkg/logger"
)

const projectKey = "project_id"

// UpgradeProject admits a websocket upgrade once the caller is known to have
// access to the project. It runs after middleware.UseQueryToken.
func (h *Handler) UpgradeProject(c *fiber.Ctx) error {
	if h.hub == nil {
		return fiber.ErrNotImplemented
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	p, err := h.svc.GetProject(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	c.Locals(projectKey, p.ID)
	return c.Next()
}

// ProjectEvents streams the project's events to the connection until the
// client goes away. Incoming messages are ignored.
func (h *Handler) ProjectEvents(conn *websocket.Conn) {
	id, _ := conn.Locals(middleware.IdentityKey).(models.Identity)
	projectID, _ := conn.Locals(projectKey).(string)

	client := &myws.Client{Conn: conn, ProjectID: projectID, UserID: id.ID}
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	defer func() {
		h.hub.Unregister(client)
		<-client.Done()
	}()

	logger.SystemLogger.Info("Realtime client connected",
		zap.String("project_id", projectID), zap.String("user_id", id.ID))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
