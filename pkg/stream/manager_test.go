package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"command-center/pkg/model"
)

// recordSink captures every envelope the manager forwards.
type recordSink struct {
	mu      sync.Mutex
	applied []model.Envelope
	resets  int
}

func (s *recordSink) Apply(e model.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, e)
}

func (s *recordSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = nil
	s.resets++
}

func (s *recordSink) snapshot() []model.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Envelope(nil), s.applied...)
}

// fakeBackend upgrades one connection at a time and hands it to the test.
type fakeBackend struct {
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:    make(chan *websocket.Conn, 4),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := fb.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.conns <- c
		// drain client frames (subscribe messages) so writes don't block
		go func() {
			for {
				if _, _, err := c.NextReader(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fb.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received a connection")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func connect(t *testing.T, srv *httptest.Server, sink Sink) *Manager {
	t.Helper()
	m, err := New(srv.URL, "", sink)
	if err != nil {
		t.Fatalf("manager setup: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestConnectAndRouteSubscribedTask(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	m := connect(t, srv, sink)
	conn := fb.accept(t)

	if !m.IsConnected() {
		t.Fatal("expected connected flag after Connect")
	}

	m.Subscribe("task-a")
	env := model.Envelope{Type: model.EnvTaskStatus, TaskID: "task-a", Status: model.StatusRouting}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 }, "envelope forwarded")
	got := sink.snapshot()[0]
	if got.Status != model.StatusRouting || got.TaskID != "task-a" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	fb, srv := newFakeBackend(t)
	m := connect(t, srv, &recordSink{})
	fb.accept(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	select {
	case <-fb.conns:
		t.Fatal("second Connect opened a second connection")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEnvelopesForOtherTasksAreDropped(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	m := connect(t, srv, sink)
	conn := fb.accept(t)

	m.Subscribe("task-a")
	write := func(taskID, content string) {
		t.Helper()
		if err := conn.WriteJSON(model.Envelope{
			Type: model.EnvAgentMessage, TaskID: taskID, From: "A", To: "B", Content: content,
		}); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
	write("task-a", "m1")
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 }, "first message forwarded")

	// replace subscription; late task-a envelopes must not be applied
	m.Subscribe("task-b")
	write("task-a", "late")
	write("task-b", "m2")
	waitFor(t, func() bool { return len(sink.snapshot()) == 2 }, "task-b message forwarded")
	for _, e := range sink.snapshot() {
		if e.Content == "late" {
			t.Fatal("envelope from replaced subscription was applied")
		}
	}
}

func TestUnsubscribedForwardsOnlyGlobalEnvelopes(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	connect(t, srv, sink)
	conn := fb.accept(t)

	if err := conn.WriteJSON(model.Envelope{Type: model.EnvAgentMessage, TaskID: "task-x", From: "A", To: "B"}); err != nil {
		t.Fatalf("server write: %v", err)
	}
	if err := conn.WriteJSON(model.Envelope{Type: model.EnvAgentMessage, From: "registry", To: "all", Content: "announce"}); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 }, "global envelope forwarded")
	if got := sink.snapshot()[0].Content; got != "announce" {
		t.Fatalf("expected only the untagged envelope, got %+v", sink.snapshot())
	}
}

func TestMalformedEnvelopesDroppedSilently(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	m := connect(t, srv, sink)
	conn := fb.accept(t)
	m.Subscribe("task-a")

	frames := [][]byte{
		[]byte(`not-json`),
		[]byte(`{"type":"task:paused","taskId":"task-a"}`),
		[]byte(`{"type":"task:status","taskId":"task-a"}`), // missing status
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
	if err := conn.WriteJSON(model.Envelope{Type: model.EnvTaskStatus, TaskID: "task-a", Status: model.StatusPlanning}); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 }, "valid envelope still forwarded")
	if !m.IsConnected() {
		t.Fatal("malformed envelopes must not sever the connection")
	}
	if got := sink.snapshot()[0].Status; got != model.StatusPlanning {
		t.Fatalf("unexpected envelope: %+v", sink.snapshot())
	}
}

func TestResetClearsSinkWithoutDisconnecting(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	m := connect(t, srv, sink)
	conn := fb.accept(t)

	m.Subscribe("task-a")
	if err := conn.WriteJSON(model.Envelope{Type: model.EnvPayment, TaskID: "task-a", From: "A", To: "B", Amount: 1, Token: "SOL"}); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 }, "payment forwarded")

	before := m.Epoch()
	m.Reset()
	if m.Epoch() <= before {
		t.Fatal("Reset must advance the epoch")
	}
	if sink.resets != 1 || len(sink.snapshot()) != 0 {
		t.Fatalf("Reset must clear the sink: resets=%d applied=%d", sink.resets, len(sink.snapshot()))
	}
	if !m.IsConnected() {
		t.Fatal("Reset must not sever the connection")
	}
}

func TestSubscribeIfEpochRejectsStale(t *testing.T) {
	fb, srv := newFakeBackend(t)
	sink := &recordSink{}
	m := connect(t, srv, sink)
	fb.accept(t)

	epoch := m.Epoch()
	m.Reset() // a newer submission took over
	if m.SubscribeIfEpoch(epoch, "task-old") {
		t.Fatal("stale epoch must not subscribe")
	}
	if m.SubscribeIfEpoch(m.Epoch(), "task-new") != true {
		t.Fatal("current epoch must subscribe")
	}
}

func TestDisconnectFlipsFlag(t *testing.T) {
	fb, srv := newFakeBackend(t)
	m := connect(t, srv, &recordSink{})
	conn := fb.accept(t)

	_ = conn.Close()
	waitFor(t, func() bool { return !m.IsConnected() }, "connected flag flips on transport loss")
}

func TestSubscribeSendsFrameUpstream(t *testing.T) {
	fb := &fakeBackend{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:    make(chan *websocket.Conn, 1),
	}
	frames := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := fb.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.conns <- c
		go func() {
			for {
				_, data, err := c.ReadMessage()
				if err != nil {
					return
				}
				frames <- data
			}
		}()
	}))
	defer srv.Close()

	m := connect(t, srv, &recordSink{})
	fb.accept(t)
	m.Subscribe("task-a")

	select {
	case data := <-frames:
		var f struct {
			Type   string `json:"type"`
			TaskID string `json:"taskId"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if f.Type != "subscribe" || f.TaskID != "task-a" {
			t.Fatalf("unexpected frame: %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe frame received")
	}
}
