package model

import "time"

// Payment is a value transfer attributed to a task. Append-only from the
// client's perspective; never edited or removed once received.
type Payment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId,omitempty"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      float64   `json:"amount"`
	Token       string    `json:"token"` // SOL or USDC
	Purpose     string    `json:"purpose,omitempty"`
	TxSignature string    `json:"txSignature,omitempty"`
	Status      string    `json:"status,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}
