package store

import (
	"context"
	"sync"
)

// MemoryStatus is the in-process StatusStore used when no Redis is
// configured and by tests.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Status)}
}

func (s *MemoryStatus) Set(ctx context.Context, jobID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = st
	return nil
}

func (s *MemoryStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[jobID]
	return st, ok, nil
}

func (s *MemoryStatus) Close() error { return nil }
