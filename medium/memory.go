package medium

import (
	"sort"
	"sync"
)

// MemoryMedium keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryMedium struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{items: make(map[string]string)}
}

func (m *MemoryMedium) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryMedium) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryMedium) RemoveItem(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return false, nil
	}
	delete(m.items, key)
	return true, nil
}

func (m *MemoryMedium) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
