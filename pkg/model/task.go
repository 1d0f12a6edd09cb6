package model

import (
	"encoding/json"
	"time"
)

// TaskStatus is the backend-asserted lifecycle phase of a task. The client
// records the latest value received and never validates transition legality;
// the backend owns orchestration truth.
type TaskStatus string

const (
	StatusPending         TaskStatus = "pending"
	StatusRouting         TaskStatus = "routing"
	StatusQueued          TaskStatus = "queued"
	StatusPlanning        TaskStatus = "planning"
	StatusExecuting       TaskStatus = "executing"
	StatusProcessing      TaskStatus = "processing"
	StatusAwaitingPayment TaskStatus = "awaiting_payment"
	StatusCompleted       TaskStatus = "completed"
	StatusFailed          TaskStatus = "failed"
)

// Terminal reports whether no further status transitions are expected.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether s is one of the documented lifecycle phases.
func (s TaskStatus) Known() bool {
	switch s {
	case StatusPending, StatusRouting, StatusQueued, StatusPlanning,
		StatusExecuting, StatusProcessing, StatusAwaitingPayment,
		StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// StepRef identifies the unit of work a status envelope is currently on.
type StepRef struct {
	Specialist string `json:"specialist"`
	Action     string `json:"action"`
}

// TaskStep is one planned/executed unit of work within a task.
type TaskStep struct {
	ID          string          `json:"id"`
	Specialist  string          `json:"specialist"`
	Status      string          `json:"status"` // pending/running/completed/failed
	Input       string          `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt,omitempty"`
	CompletedAt time.Time       `json:"completedAt,omitempty"`
}

// Task is one orchestration run. The client only ever holds a read-only
// projection; the simulator owns full records.
type Task struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Prompt      string          `json:"prompt"`
	Status      TaskStatus      `json:"status"`
	Plan        string          `json:"plan,omitempty"`
	Steps       []TaskStep      `json:"steps,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Payments    []Payment       `json:"payments,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt time.Time       `json:"completedAt,omitempty"`
}
