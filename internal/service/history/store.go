package history

import (
	"context"
	"errors"
)

// ErrSessionRequired is returned when a session id is empty.
var ErrSessionRequired = errors.New("session id is required")

// Store keeps a bounded, append-only buffer of recent user messages per session.
type Store interface {
	// Recent returns up to n most recent messages, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]string, error)
	// Append records a message and evicts the oldest beyond the store limit.
	Append(ctx context.Context, sessionID, text string) error
	Ping(ctx context.Context) error
}

func tail(items []string, n int) []string {
	if n <= 0 || len(items) == 0 {
		return []string{}
	}
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
