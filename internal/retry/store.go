// Package retry tracks bounded retries of transient dataset loads. State is
// kept per operation key behind a small Store port so it survives restarts
// when a persistent store is configured.
package retry

import (
	"context"
	"sync"
)

// State is the persisted retry record of one operation key.
type State struct {
	RetryCount  int   `json:"retryCount"`
	LastRetryAt int64 `json:"lastRetryAt"` // epoch milliseconds
}

// Store persists retry state. A missing record is reported as found=false
// and is equivalent to RetryCount 0.
type Store interface {
	Get(ctx context.Context, key string) (State, bool, error)
	Set(ctx context.Context, key string, state State) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = state
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
