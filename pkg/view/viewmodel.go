// Package view holds the in-memory projection the dashboard maintains from
// the event stream. The fold is a pass-through recorder: it stores whatever
// the backend asserts, in arrival order, and never validates status
// transitions.
package view

import (
	"encoding/json"
	"sync"

	"command-center/pkg/model"
)

// Snapshot is a point-in-time copy of the projection, safe to render from
// any goroutine.
type Snapshot struct {
	TaskID   string
	Status   model.TaskStatus // empty until the first task:status arrives
	Step     *model.StepRef   // most recent step-bearing status, nil if none
	Messages []model.AgentMessage
	Payments []model.Payment
	Result   json.RawMessage // set by task:complete, nil until then
	Done     bool            // a task:complete envelope has been received
}

// TaskView folds envelopes into renderable state. A single writer applies
// envelopes in transport order; readers take snapshots.
type TaskView struct {
	mu       sync.RWMutex
	taskID   string
	status   model.TaskStatus
	step     *model.StepRef
	messages []model.AgentMessage
	payments []model.Payment
	result   json.RawMessage
	done     bool
}

func New() *TaskView {
	return &TaskView{}
}

// Apply folds one envelope. Replaying the same envelope sequence against a
// fresh view always yields identical state.
//
// task:complete sets the result but does not force the status to completed;
// status and result are independently asserted by the backend.
func (v *TaskView) Apply(e model.Envelope) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e.TaskID != "" {
		v.taskID = e.TaskID
	}
	switch e.Type {
	case model.EnvTaskStatus:
		v.status = e.Status
		if e.Step != nil {
			step := *e.Step
			v.step = &step
		}
	case model.EnvAgentMessage:
		v.messages = append(v.messages, model.AgentMessage{
			TaskID:    e.TaskID,
			From:      e.From,
			To:        e.To,
			Content:   e.Content,
			Payload:   e.Payload,
			Timestamp: e.Timestamp,
		})
	case model.EnvPayment:
		v.payments = append(v.payments, model.Payment{
			TaskID:      e.TaskID,
			From:        e.From,
			To:          e.To,
			Amount:      e.Amount,
			Token:       e.Token,
			TxSignature: e.TxSig,
			Timestamp:   e.Timestamp,
		})
	case model.EnvTaskComplete:
		v.result = e.Result
		v.done = true
	}
}

// Reset discards all accumulated state, in preparation for a new submission.
func (v *TaskView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.taskID = ""
	v.status = ""
	v.step = nil
	v.messages = nil
	v.payments = nil
	v.result = nil
	v.done = false
}

// Snapshot copies the current state. Logs are copied so callers can hold the
// snapshot across later folds.
func (v *TaskView) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := Snapshot{
		TaskID: v.taskID,
		Status: v.status,
		Result: v.result,
		Done:   v.done,
	}
	if v.step != nil {
		step := *v.step
		s.Step = &step
	}
	if len(v.messages) > 0 {
		s.Messages = append([]model.AgentMessage(nil), v.messages...)
	}
	if len(v.payments) > 0 {
		s.Payments = append([]model.Payment(nil), v.payments...)
	}
	return s
}

// Replay folds a recorded sequence into a fresh view.
func Replay(envelopes []model.Envelope) *TaskView {
	v := New()
	for _, e := range envelopes {
		v.Apply(e)
	}
	return v
}
