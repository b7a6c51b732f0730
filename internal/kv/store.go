// Package kv provides the persisted key-value slots that survive process restarts.
package kv

import (
	"context"
	"sync"
)

// Store defines the interface for key-value persistence.
type Store interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores every entry of values, replacing previous values. Either all
	// entries are written or none are.
	Put(ctx context.Context, values map[string]string) error

	// Delete removes keys. Deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStore is an in-process Store used for tests and ephemeral sessions.
type MemoryStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put stores values.
func (m *MemoryStore) Put(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// Delete removes keys.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
