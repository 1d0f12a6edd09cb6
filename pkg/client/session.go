package client

import (
	"context"
	"errors"

	"command-center/pkg/stream"
)

// ErrStale marks a dispatch response that arrived after a newer submission
// or reset took over the session.
var ErrStale = errors.New("dispatch response superseded")

// Session glues dispatch to the stream manager: reset, dispatch, then
// subscribe with the captured epoch so a response that arrives after an
// intervening reset or resubmission is discarded instead of re-subscribing
// to a stale task.
type Session struct {
	Client  *Client
	Manager *stream.Manager
}

// Submit starts a new task from a prompt. On any dispatch failure the
// manager is left unsubscribed and the error is returned for display.
func (s *Session) Submit(ctx context.Context, prompt string) (string, error) {
	s.Manager.Reset()
	epoch := s.Manager.Epoch()
	taskID, err := s.Client.Dispatch(ctx, prompt)
	if err != nil {
		return "", err
	}
	if !s.Manager.SubscribeIfEpoch(epoch, taskID) {
		return "", ErrStale
	}
	return taskID, nil
}
