package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a minimal in-memory Storage intended for tests, examples and as
// the default backend. Values do not survive the process.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
	sets  int
}

func NewMemory() *Memory {
	return &Memory{items: map[string]string{}}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	value, ok := m.items[key]
	m.mu.RUnlock()
	return value, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	if m.items == nil {
		m.items = map[string]string{}
	}
	m.items[key] = value
	m.sets++
	m.mu.Unlock()
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys matching prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Writes reports how many SetItem calls the backend has served.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

// Clear drops every stored value.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.items = map[string]string{}
	m.mu.Unlock()
}
