package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"projectmanager/internal/models"
	"projectmanager/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one subscriber to a project's events. The hub owns its send
// queue; each client gets its own writer goroutine once registered.
type Client struct {
	Conn      Conn
	ProjectID string
	UserID    string
	send      chan []byte
	done      chan struct{}
}

// Done is closed once the client's writer has stopped using Conn.
func (c *Client) Done() <-chan struct{} { return c.done }

// writePump delivers queued messages until the hub closes the queue, then
// closes the connection.
func (c *Client) writePump(send <-chan []byte) {
	defer close(c.done)
	defer c.Conn.Close()
	for msg := range send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.Conn.Close()
			for range send {
			}
			return
		}
	}
}

// Hub fans project events out to the clients subscribed to that project.
// Only the Run goroutine touches the rooms map, and it never writes to a
// connection itself.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan models.ProjectEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan models.ProjectEvent, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for client := range room {
					h.remove(client, true)
				}
			}
			return
		case client := <-h.register:
			room, ok := h.rooms[client.ProjectID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.ProjectID] = room
			}
			room[client] = true
			go client.writePump(client.send)
		case client := <-h.unregister:
			h.remove(client, false)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event models.ProjectEvent) {
	if event.Audience != nil {
		allowed := make(map[string]bool, len(event.Audience))
		for _, id := range event.Audience {
			allowed[id] = true
		}
		for client := range h.rooms[event.ProjectID] {
			if !allowed[client.UserID] {
				logger.SecurityLogger.Info("Realtime client lost project access",
					zap.String("project_id", event.ProjectID), zap.String("user_id", client.UserID))
				h.remove(client, false)
			}
		}
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding event", zap.Error(err))
		return
	}
	for client := range h.rooms[event.ProjectID] {
		select {
		case client.send <- msg:
		default:
			logger.SystemLogger.Warn("Disconnecting slow realtime client",
				zap.String("project_id", event.ProjectID), zap.String("user_id", client.UserID))
			h.remove(client, true)
		}
	}

	// The deleted event is the room's last message.
	if event.Type == models.EventProjectDeleted {
		for client := range h.rooms[event.ProjectID] {
			h.remove(client, false)
		}
	}
}

// remove drops client from its room and closes its queue. The writer flushes
// what is already queued unless force is set, in which case the connection
// is closed at once to unblock a stuck write.
func (h *Hub) remove(client *Client, force bool) {
	room, ok := h.rooms[client.ProjectID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.send)
	if force {
		client.Conn.Close()
	}
	if len(room) == 0 {
		delete(h.rooms, client.ProjectID)
	}
}

// Register subscribes client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	client.send = make(chan []byte, sendBuffer)
	client.done = make(chan struct{})
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for delivery. It never blocks the caller; events are
// dropped when the queue is full or the hub has stopped.
func (h *Hub) Publish(event models.ProjectEvent) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- event:
	default:
		logger.SystemLogger.Warn("Dropping realtime event",
			zap.String("type", string(event.Type)),
			zap.String("project_id", event.ProjectID))
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }
