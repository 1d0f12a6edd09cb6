// Package sim is a development stand-in for the real orchestration backend:
// it serves the dispatch and registry endpoints and pushes a scripted
// envelope sequence for every submitted task.
package sim

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"command-center/pkg/model"
)

// Hub maintains dashboard websocket connections and fans envelopes out to
// subscribers. A connection with no subscription receives only untagged
// envelopes.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[*websocket.Conn]string // conn -> subscribed task id ("" = none)

	// writeMu serializes WriteJSON across scenario goroutines; gorilla
	// connections support one concurrent writer.
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: map[*websocket.Conn]string{},
	}
}

// HandleWS upgrades a dashboard connection and tracks its task subscription.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	h.mu.Lock()
	h.subs[c] = ""
	h.mu.Unlock()
	log.Printf("dashboard ws connected: %s", r.RemoteAddr)
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
		h.mu.Lock()
		delete(h.subs, c)
		h.mu.Unlock()
		log.Printf("dashboard ws disconnected")
	}()
	for {
		var msg struct {
			Type   string `json:"type"`
			TaskID string `json:"taskId"`
		}
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "subscribe" {
			h.mu.Lock()
			h.subs[c] = msg.TaskID
			h.mu.Unlock()
			log.Printf("dashboard subscribed task=%s", msg.TaskID)
		}
	}
}

// Publish sends an envelope to every connection subscribed to its task.
// Untagged envelopes go to everyone.
func (h *Hub) Publish(env model.Envelope) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for c, taskID := range h.subs {
		if env.TaskID == "" || taskID == env.TaskID {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteJSON(env); err != nil {
			log.Printf("ws publish failed: %v", err)
		}
	}
}
