package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by the engine's own tests and by
// embedders that do not need durability.
type Memory struct {
	mu      sync.RWMutex
	values  map[string][]byte
	indexes map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:  make(map[string][]byte),
		indexes: make(map[string]string),
	}
}

func (m *Memory) Put(_ context.Context, key string, value []byte, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	if index == "" {
		delete(m.indexes, key)
	} else {
		m.indexes[key] = index
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrKeyNotFound)
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) GetAll(_ context.Context) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(m.values))
	for k, v := range m.values {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.indexes, key)
	return nil
}

func (m *Memory) FindByIndex(_ context.Context, index string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte)
	for key, idx := range m.indexes {
		if idx == index {
			out[key] = append([]byte(nil), m.values[key]...)
		}
	}
	return out, nil
}
