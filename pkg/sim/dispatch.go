package sim

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"command-center/pkg/model"
	"command-center/pkg/store"
)

// RegisterDispatchRoutes exposes task creation and listing. Each dispatch
// kicks off a scenario goroutine that streams the task lifecycle.
func RegisterDispatchRoutes(mux *http.ServeMux, st store.TaskStore, auth func(r *http.Request) bool, sc *Scenario) {
	mux.HandleFunc("/dispatch", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		task := model.Task{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			Prompt:    req.Prompt,
			Status:    model.StatusPending,
			CreatedAt: time.Now(),
		}
		if err := st.SaveTask(task); err != nil {
			http.Error(w, "failed to save task", http.StatusInternalServerError)
			return
		}
		go sc.Run(task)
		log.Printf("dispatched task=%s user=%s", task.ID, req.UserID)
		writeJSON(w, http.StatusCreated, map[string]string{"taskId": task.ID})
	})

	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		items, err := st.ListTasks(r.URL.Query().Get("userId"), 50)
		if err != nil {
			http.Error(w, "failed to list", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
