// Package settings persists player preferences in a string-keyed store.
// Values are JSON documents, one per key, so a store written by one
// front end can be read by another.
package settings

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("settings: store closed")

// KV is a string-keyed store of JSON values.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

// MemoryStore is a KV held in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ KV = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.values)), nil
}
