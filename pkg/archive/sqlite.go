// Package archive keeps a best-effort append-only record of received
// messages and payments in a local sqlite database. Failures never affect
// the live fold; every write is fire-and-forget.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"command-center/pkg/model"
)

type Archive struct {
	db *sql.DB
}

// Open creates (or opens) the archive database at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive mkdir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive open: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive ping: %w", err)
	}
	schema := `CREATE TABLE IF NOT EXISTS messages(task_id TEXT, from_agent TEXT, to_agent TEXT, content TEXT, payload BLOB, ts INTEGER);
CREATE TABLE IF NOT EXISTS payments(task_id TEXT, from_agent TEXT, to_agent TEXT, amount REAL, token TEXT, tx_signature TEXT, ts INTEGER);
CREATE INDEX IF NOT EXISTS idx_messages_task ON messages(task_id);
CREATE INDEX IF NOT EXISTS idx_payments_task ON payments(task_id);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Apply records message and payment envelopes. Status and completion
// envelopes are not archived.
func (a *Archive) Apply(e model.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var err error
	switch e.Type {
	case model.EnvAgentMessage:
		_, err = a.db.ExecContext(ctx,
			`INSERT INTO messages(task_id, from_agent, to_agent, content, payload, ts) VALUES(?,?,?,?,?,?)`,
			e.TaskID, e.From, e.To, e.Content, []byte(e.Payload), e.Timestamp.Unix())
	case model.EnvPayment:
		_, err = a.db.ExecContext(ctx,
			`INSERT INTO payments(task_id, from_agent, to_agent, amount, token, tx_signature, ts) VALUES(?,?,?,?,?,?,?)`,
			e.TaskID, e.From, e.To, e.Amount, e.Token, e.TxSig, e.Timestamp.Unix())
	}
	if err != nil {
		log.Printf("archive write failed: %v", err)
	}
}

// Reset is a no-op. Resets clear the live projection only; the archive
// persists across submissions.
func (a *Archive) Reset() {}

// Messages returns archived messages for a task in insertion order.
func (a *Archive) Messages(taskID string) ([]model.AgentMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := a.db.QueryContext(ctx,
		`SELECT from_agent, to_agent, content, payload, ts FROM messages WHERE task_id=? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AgentMessage
	for rows.Next() {
		var m model.AgentMessage
		var ts int64
		var payload []byte
		if err := rows.Scan(&m.From, &m.To, &m.Content, &payload, &ts); err != nil {
			return nil, err
		}
		m.TaskID = taskID
		m.Payload = payload
		m.Timestamp = time.Unix(ts, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Payments returns archived payments for a task in insertion order.
func (a *Archive) Payments(taskID string) ([]model.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := a.db.QueryContext(ctx,
		`SELECT from_agent, to_agent, amount, token, tx_signature, ts FROM payments WHERE task_id=? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		var ts int64
		if err := rows.Scan(&p.From, &p.To, &p.Amount, &p.Token, &p.TxSignature, &ts); err != nil {
			return nil, err
		}
		p.TaskID = taskID
		p.Timestamp = time.Unix(ts, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}
