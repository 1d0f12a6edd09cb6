// Package stream maintains the single live websocket connection to the
// backend event stream and routes envelopes to the active subscriber.
package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"command-center/pkg/model"
)

// Sink receives envelopes that pass the subscription filter. The view-model
// implements it; tests substitute their own.
type Sink interface {
	Apply(model.Envelope)
	Reset()
}

// Manager owns at most one live connection. It does not auto-reconnect; a
// transport-level disconnect only flips the observable connected flag.
type Manager struct {
	mu        sync.Mutex
	endpoint  string
	token     string
	sink      Sink
	conn      *websocket.Conn
	connected bool
	taskID    string
	epoch     uint64
}

// New builds a manager for the backend at base (http/https URL); the stream
// endpoint is derived by swapping the scheme to ws/wss and appending /ws.
func New(base, token string, sink Sink) (*Manager, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	u.Scheme = scheme
	u.Path = "/ws"
	return &Manager{endpoint: u.String(), token: token, sink: sink}, nil
}

// Connect establishes the connection and starts the read loop. Idempotent if
// already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	header := http.Header{}
	if m.token != "" {
		header.Set("Authorization", "Bearer "+m.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.endpoint, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("ws dial %s (status=%d): %w", m.endpoint, status, err)
	}

	m.mu.Lock()
	if m.connected {
		// lost a connect race; keep the first connection
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.connected = true
	m.mu.Unlock()
	log.Printf("stream connected url=%s", m.endpoint)
	go m.readLoop(conn)
	return nil
}

// IsConnected reports the observable connection-state flag.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Epoch returns the current submission epoch. It increases on every
// Subscribe and Reset; callers capture it before a dispatch and use
// SubscribeIfEpoch to discard stale responses.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Subscribe associates the connection with a task id, replacing any prior
// subscription. Envelopes from a previous subscription are not queued or
// replayed. A subscribe frame is sent upstream best-effort.
func (m *Manager) Subscribe(taskID string) {
	m.mu.Lock()
	m.taskID = taskID
	m.epoch++
	conn := m.conn
	m.mu.Unlock()
	log.Printf("stream subscribed task=%s", taskID)
	if conn != nil {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "taskId": taskID}); err != nil {
			log.Printf("subscribe frame send failed: %v", err)
		}
	}
}

// SubscribeIfEpoch subscribes only when the manager is still at the given
// epoch, closing the stale-dispatch race: a response captured before an
// intervening Reset or Subscribe is discarded.
func (m *Manager) SubscribeIfEpoch(epoch uint64, taskID string) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		log.Printf("stale dispatch response dropped task=%s epoch=%d current=%d", taskID, epoch, m.epoch)
		return false
	}
	m.taskID = taskID
	m.epoch++
	conn := m.conn
	m.mu.Unlock()
	log.Printf("stream subscribed task=%s", taskID)
	if conn != nil {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "taskId": taskID}); err != nil {
			log.Printf("subscribe frame send failed: %v", err)
		}
	}
	return true
}

// Reset clears the subscription and the sink's accumulated state without
// severing the underlying connection.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.taskID = ""
	m.epoch++
	m.mu.Unlock()
	m.sink.Reset()
}

// Close severs the connection. The read loop exits and flips the flag.
func (m *Manager) Close() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
			m.connected = false
		}
		m.mu.Unlock()
		log.Printf("stream disconnected")
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := model.ParseEnvelope(data)
		if err != nil {
			// contract violation by the backend; not user-actionable
			log.Printf("dropping envelope: %v", err)
			continue
		}
		m.mu.Lock()
		taskID := m.taskID
		m.mu.Unlock()
		if env.TaskID != "" && env.TaskID != taskID {
			continue
		}
		m.sink.Apply(env)
	}
}
