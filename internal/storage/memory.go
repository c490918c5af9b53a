package storage

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store. The daemon falls back to it when the
// database cannot be opened; tests use it as the persistence double.
type MemoryStore struct {
	mu      sync.Mutex
	summary Summary
	saves   int
	err     error
}

// NewMemoryStore returns a MemoryStore seeded with a copy of initial.
func NewMemoryStore(initial Summary) *MemoryStore {
	return &MemoryStore{summary: initial.Clone()}
}

// Load returns a copy of the stored summary.
func (m *MemoryStore) Load(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.summary.Clone(), nil
}

// Save replaces the stored summary with a copy of s.
func (m *MemoryStore) Save(ctx context.Context, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.summary = s.Clone()
	m.saves++
	return nil
}

// FailWith makes every later Load and Save return err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Saves reports how many Save calls succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
