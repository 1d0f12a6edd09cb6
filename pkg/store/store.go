package store

import "command-center/pkg/model"

// TaskStore persists simulator task records. In-memory for dev/demo; the
// interface leaves room for a durable backend.
type TaskStore interface {
	SaveTask(model.Task) error
	GetTask(id string) (model.Task, bool, error)
	ListTasks(userID string, limit int) ([]model.Task, error)
}
