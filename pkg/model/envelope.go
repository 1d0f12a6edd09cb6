package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope tags pushed over the event stream.
const (
	EnvTaskStatus   = "task:status"
	EnvAgentMessage = "agent:message"
	EnvPayment      = "payment"
	EnvTaskComplete = "task:complete"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is one discriminated-union message from the event stream. A single
// struct carries the superset of fields; Validate enforces which ones each
// tag requires. Payload and Result are opaque blobs.
type Envelope struct {
	Type      string          `json:"type"`
	TaskID    string          `json:"taskId,omitempty"`
	Status    TaskStatus      `json:"status,omitempty"`
	Step      *StepRef        `json:"step,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Content   string          `json:"content,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Amount    float64         `json:"amount,omitempty"`
	Token     string          `json:"token,omitempty"`
	TxSig     string          `json:"txSignature,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Validate checks the tag and its required fields. An unknown tag, or a
// recognized tag missing a required field, signals a contract violation by
// the backend; callers drop such envelopes.
func (e *Envelope) Validate() error {
	switch e.Type {
	case EnvTaskStatus:
		if e.Status == "" {
			return fmt.Errorf("%w: task:status without status", ErrMalformedEnvelope)
		}
	case EnvAgentMessage:
		if e.From == "" || e.To == "" {
			return fmt.Errorf("%w: agent:message without from/to", ErrMalformedEnvelope)
		}
	case EnvPayment:
		if e.From == "" || e.To == "" || e.Token == "" || e.Amount <= 0 {
			return fmt.Errorf("%w: payment missing transfer fields", ErrMalformedEnvelope)
		}
	case EnvTaskComplete:
		if len(e.Result) == 0 {
			return fmt.Errorf("%w: task:complete without result", ErrMalformedEnvelope)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEnvelope, e.Type)
	}
	return nil
}

// ParseEnvelope decodes and validates one raw stream frame.
func ParseEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
