package session

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// StatusLog is the append-only, time-ordered status log of one session.
// Entries are never removed.
type StatusLog struct {
	sessionID string
	store     LogStore
	clock     clockwork.Clock

	mu sync.Mutex
}

// NewStatusLog binds a log to sessionID. A nil store keeps entries in memory
// and a nil clock uses wall time.
func NewStatusLog(sessionID string, store LogStore, clock clockwork.Clock) *StatusLog {
	if store == nil {
		store = NewMemoryStore()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusLog{sessionID: sessionID, store: store, clock: clock}
}

// Append timestamps text and stores it after every earlier entry. The entry
// is returned even when the store fails so callers can still display it.
func (l *StatusLog) Append(ctx context.Context, text string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{At: l.clock.Now(), Text: text}
	return e, l.store.Append(ctx, l.sessionID, e)
}

// Entries returns the whole log, oldest first.
func (l *StatusLog) Entries(ctx context.Context) ([]Entry, error) {
	return l.store.Entries(ctx, l.sessionID)
}

// Tail returns at most n of the newest entries, oldest first.
func (l *StatusLog) Tail(ctx context.Context, n int) ([]Entry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
