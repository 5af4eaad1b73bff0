// File: internal/checkpoint/memory.go
package checkpoint

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps checkpoints in a process-local map. Suitable for single
// invocations and tests; state is lost on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, threadID string, state []byte) error {
	if threadID == "" {
		return fmt.Errorf("thread ID must not be empty")
	}
	// Copy so callers can reuse their buffer.
	buf := make([]byte, len(state))
	copy(buf, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[threadID] = buf
	return nil
}

func (s *MemoryStore) Load(_ context.Context, threadID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.state[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, threadID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
