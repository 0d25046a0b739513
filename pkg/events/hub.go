package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/gridstake/gridstake/pkg/log"
)

// Hub fans events out to connected websocket subscribers. Connections
// that fail a write are dropped.
type Hub struct {
	lock  sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a subscriber connection. The hub owns the write side;
// the caller must not write to the connection afterwards.
func (h *Hub) Register(conn *websocket.Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes and closes a subscriber connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

// Size returns the number of connected subscribers.
func (h *Hub) Size() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.conns)
}

// Broadcast sends an event to every subscriber.
func (h *Hub) Broadcast(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debug("Dropping event subscriber: %v", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
	return nil
}
