package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
	"github.com/scythe504/sketchoff-backend/internal/game"
)

var _ game.Broadcaster = (*Hub)(nil)

// =============================================================================
// HUB
// =============================================================================

// Hub tracks the live connections of this process and the room each one is
// subscribed to. It implements game.Broadcaster: sends only enqueue onto a
// connection's buffered channel, so callers holding a room lock never wait on
// the network.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.L()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger.Named("hub"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// unregister drops the client and closes its send channel. It returns the
// room the client was subscribed to.
func (h *Hub) unregister(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := c.room
	h.detachLocked(c)
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return room
}

func (h *Hub) detachLocked(c *Client) {
	if c.room == "" {
		return
	}
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

func (h *Hub) Subscribe(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok || c.closed {
		return
	}
	h.detachLocked(c)
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomCode] = members
	}
	members[connID] = c
	c.room = roomCode
}

// ReleaseRoom detaches the listed connections from roomCode. Connections that
// already moved elsewhere are left alone.
func (h *Hub) ReleaseRoom(roomCode string, connIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok && c.room == roomCode {
			h.detachLocked(c)
		}
	}
}

// RoomOf returns the room a connection is subscribed to, or "".
func (h *Hub) RoomOf(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		return c.room
	}
	return ""
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToRoom(roomCode string, msg internal.Message[any]) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode room event", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.BroadcastRaw(roomCode, payload)
}

// BroadcastRaw fans an already encoded frame out to a room's local members.
func (h *Hub) BroadcastRaw(roomCode string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[roomCode] {
		h.enqueueLocked(c, payload)
	}
}

func (h *Hub) SendToConnection(connID string, msg internal.Message[any]) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueueLocked(c, payload)
	}
}

// enqueueLocked needs at least the read lock. A client whose buffer is full
// is too slow to keep up and gets disconnected.
func (h *Hub) enqueueLocked(c *Client, payload []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("send buffer full, dropping connection", zap.String("conn", c.id))
		go c.close()
	}
}
