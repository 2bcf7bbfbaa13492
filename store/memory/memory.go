package memory

import (
	"context"
	"sync"

	"github.com/zlnvch/drawguess/store"
)

// MemoryRegion is a process-scoped region. It is the session region of a
// client and a stand-in durable region in dev mode.
type MemoryRegion struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryRegion() *MemoryRegion {
	return &MemoryRegion{items: make(map[string]string)}
}

func (m *MemoryRegion) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	if !ok {
		return "", store.ErrItemNotFound
	}
	return value, nil
}

func (m *MemoryRegion) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryRegion) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns the stored keys, for diagnostics and tests.
func (m *MemoryRegion) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}
