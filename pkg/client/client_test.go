package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"command-center/pkg/model"
	"command-center/pkg/stream"
	"command-center/pkg/view"
)

func TestDispatchReturnsTaskID(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dispatch" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"taskId": "task-123"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "user-1")
	taskID, err := c.Dispatch(context.Background(), "summarize the news")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if taskID != "task-123" {
		t.Fatalf("unexpected task id %q", taskID)
	}
	if gotBody["prompt"] != "summarize the news" || gotBody["userId"] != "user-1" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}

func TestDispatchNonSuccessSurfacesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "user-1")
	_, err := c.Dispatch(context.Background(), "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status code %d", apiErr.StatusCode)
	}
	if apiErr.Error() == "" {
		t.Fatal("error string must be non-empty for display")
	}
}

func TestDispatchMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "user-1")
	if _, err := c.Dispatch(context.Background(), "p"); err == nil {
		t.Fatal("expected error for response without taskId")
	}
}

func TestDispatchSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"taskId": "t"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tkn", "user-1")
	if _, err := c.Dispatch(context.Background(), "p"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func TestAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]model.Agent{
			{ID: "a1", Name: "Alpha", Reputation: 90, TrustLayer: model.TrustLayerERC8004},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "user-1")
	agents, err := c.Agents(context.Background())
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "a1" {
		t.Fatalf("unexpected agents: %+v", agents)
	}
}

func newIdleManager(t *testing.T) *stream.Manager {
	t.Helper()
	m, err := stream.New("http://127.0.0.1:0", "", view.New())
	if err != nil {
		t.Fatalf("manager setup: %v", err)
	}
	return m
}

func TestSubmitFailureLeavesManagerUnsubscribed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	mgr := newIdleManager(t)
	s := &Session{Client: New(srv.URL, "", "u"), Manager: mgr}

	before := mgr.Epoch()
	_, err := s.Submit(context.Background(), "p")
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	// Submit resets once; a subscribe would advance the epoch a second time.
	if got := mgr.Epoch(); got != before+1 {
		t.Fatalf("manager was subscribed after failed dispatch: epoch %d want %d", got, before+1)
	}
}

func TestSubmitSubscribesOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"taskId": "task-9"})
	}))
	defer srv.Close()

	mgr := newIdleManager(t)
	s := &Session{Client: New(srv.URL, "", "u"), Manager: mgr}

	before := mgr.Epoch()
	taskID, err := s.Submit(context.Background(), "p")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if taskID != "task-9" {
		t.Fatalf("unexpected task id %q", taskID)
	}
	if got := mgr.Epoch(); got != before+2 {
		t.Fatalf("expected reset+subscribe epochs, got %d want %d", got, before+2)
	}
}

func TestSubmitStaleResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"taskId": "task-old"})
	}))
	defer srv.Close()

	mgr := newIdleManager(t)
	s := &Session{Client: New(srv.URL, "", "u"), Manager: mgr}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "p")
		done <- err
	}()

	// a newer submission takes over while the first dispatch is in flight
	<-entered
	mgr.Reset()
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}
