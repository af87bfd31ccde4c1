// Package events pushes onboarding progress to the user's open browser tabs
// over WebSocket, so step screens re-render after OAuth redirects without
// polling.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// Event types pushed to clients.
const (
	TypeStepChanged   = "step_changed"
	TypeStepCompleted = "step_completed"
	TypeFlowReset     = "wizard_reset"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

// Event is one wizard progress message.
type Event struct {
	Type      string    `json:"type"`
	Step      int       `json:"step,omitempty"`
	StepID    steps.ID  `json:"step_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// connection is one open client socket.
type connection struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan Event
}

// Hub fans wizard events out to each user's open connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	checkOrigin func(r *http.Request) bool
}

// NewHub creates a hub. allowedOrigins restricts the websocket handshake; an
// empty list allows same-origin only.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		connections: make(map[*connection]bool),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Handle upgrades the request and serves events for the given user until the
// client disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		userID: userID,
		conn:   ws,
		send:   make(chan Event, sendBuffer),
	}

	h.mu.Lock()
	h.connections[c] = true
	h.mu.Unlock()

	h.logger.Debug("Wizard event connection opened", zap.String("user_id", userID.String()))

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// StepChanged implements wizard.EventPublisher.
func (h *Hub) StepChanged(userID uuid.UUID, step int) {
	h.publish(userID, Event{Type: TypeStepChanged, Step: step, Timestamp: time.Now().UTC()})
}

// StepCompleted implements wizard.EventPublisher.
func (h *Hub) StepCompleted(userID uuid.UUID, stepID steps.ID) {
	h.publish(userID, Event{Type: TypeStepCompleted, StepID: stepID, Timestamp: time.Now().UTC()})
}

// FlowReset implements wizard.EventPublisher.
func (h *Hub) FlowReset(userID uuid.UUID) {
	h.publish(userID, Event{Type: TypeFlowReset, Timestamp: time.Now().UTC()})
}

func (h *Hub) publish(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- event:
		default:
			// Slow consumer; it will be dropped by its write pump.
		}
	}
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close drops every open connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.connections {
		close(c.send)
		c.conn.Close()
		delete(h.connections, c)
	}
}

func (h *Hub) remove(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// readPump drains client frames so control messages are processed; clients
// never send application data.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Wizard event connection error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
