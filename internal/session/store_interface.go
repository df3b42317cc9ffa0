package session

import (
	"context"
	"time"
)

// Entry is one line of the status log.
type Entry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// LogStore persists status entries per session id, in append order.
type LogStore interface {
	Append(ctx context.Context, sessionID string, e Entry) error
	Entries(ctx context.Context, sessionID string) ([]Entry, error)
	Close() error
}
