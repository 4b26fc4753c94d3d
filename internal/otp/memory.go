package otp

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.  Expired entries are evicted lazily
// on lookup and swept on every Put.
type MemoryStore struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]Pending
	fails   map[string]int
}

// NewMemoryStore returns an empty store; a nil clock uses the wall clock.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{clock: clock, entries: make(map[string]Pending), fails: make(map[string]int)}
}

func (m *MemoryStore) Put(_ context.Context, key string, p Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for k, e := range m.entries {
		if !now.Before(e.ExpiresAt) {
			delete(m.entries, k)
			delete(m.fails, k)
		}
	}
	m.entries[key] = p
	delete(m.fails, key)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[key]
	if !ok {
		return Pending{}, ErrNotFound
	}
	if !m.clock.Now().Before(p.ExpiresAt) {
		delete(m.entries, key)
		delete(m.fails, key)
		return Pending{}, ErrExpired
	}
	return p, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	delete(m.fails, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Fail(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return 0, ErrNotFound
	}
	m.fails[key]++
	return m.fails[key], nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
