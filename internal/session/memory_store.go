package session

import (
	"context"
	"sync"
)

// MemoryStore keeps status logs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]Entry)}
}

func (st *MemoryStore) Append(_ context.Context, sessionID string, e Entry) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.logs[sessionID] = append(st.logs[sessionID], e)
	return nil
}

func (st *MemoryStore) Entries(_ context.Context, sessionID string) ([]Entry, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Entry, len(st.logs[sessionID]))
	copy(out, st.logs[sessionID])
	return out, nil
}

func (st *MemoryStore) Close() error {
	return nil
}
