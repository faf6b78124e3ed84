// Package hub fans export-job lifecycle updates out to connected dashboard
// websockets.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// JobUpdate is one lifecycle event pushed to dashboards.
type JobUpdate struct {
	Type   string `json:"type"` // "job_submitted", "job_update"
	JobID  string `json:"job_id,omitempty"`
	Status string `json:"status,omitempty"`
	Rows   int64  `json:"rows,omitempty"`
}

type Hub struct {
	dashboards map[*websocket.Conn]bool
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{dashboards: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dashboards[conn] = true
	slog.Info("dashboard connected", "total", len(h.dashboards))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.dashboards[conn]; ok {
		delete(h.dashboards, conn)
		conn.Close()
		slog.Info("dashboard disconnected", "total", len(h.dashboards))
	}
}

// Broadcast pushes one update to every connected dashboard, dropping
// connections whose writes fail.
func (h *Hub) Broadcast(update JobUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _ := json.Marshal(update)
	for conn := range h.dashboards {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Warn("dashboard write failed, dropping connection", "error", err)
			conn.Close()
			delete(h.dashboards, conn)
		}
	}
}
