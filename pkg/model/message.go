package model

import (
	"encoding/json"
	"time"
)

// AgentMessage is a display record of inter-agent communication. The payload
// stays opaque: the client renders it, never interprets it.
type AgentMessage struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"taskId,omitempty"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Content   string          `json:"content,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
