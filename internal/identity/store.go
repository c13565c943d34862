package identity

import (
	"context"
	"sync"
)

// SessionStore keeps per-session values that are written once and read many times.
type SessionStore interface {
	// GetOrCreate returns the stored value for key, storing create() first if
	// the session has none. Concurrent callers observe the same value.
	GetOrCreate(ctx context.Context, sessionID, key string, create func() string) (string, error)

	Close() error
}

// MemoryStore is a process-lifetime SessionStore.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID, key string, create func() string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionID + ":" + key
	if v, ok := s.values[k]; ok {
		return v, nil
	}
	v := create()
	s.values[k] = v
	return v, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ SessionStore = (*MemoryStore)(nil)
