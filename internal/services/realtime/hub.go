// Package realtime is the post-commit broadcast bridge. It fans
// financial and lifecycle notifications out to websocket clients
// subscribed to an event room. Delivery is fire-and-forget: a slow or
// dead client is dropped, and nothing here can undo a committed
// transaction.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const clientBuffer = 16

// Client is one websocket subscriber in a room.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks room membership and broadcasts payloads to rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Broadcast delivers a payload to every client in the room. Clients
// whose buffers are full are dropped rather than blocking the caller.
func (h *Hub) Broadcast(roomID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to marshal broadcast payload",
			zap.String("room", roomID), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("room", roomID))
			h.remove(roomID, c)
		}
	}
}

// Serve registers the connection in a room and pumps messages until the
// client disconnects. It is used as the gofiber websocket handler body.
func (h *Hub) Serve(roomID string, conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The read loop only detects disconnects; clients never send.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(roomID, client)
				return
			}
		case <-done:
			h.remove(roomID, client)
			return
		}
	}
}

func (h *Hub) remove(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[roomID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			client.conn.Close()
		}
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomSize reports the current subscriber count, used by health checks.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
