package store

import "sync"

// MemStore is the session-scoped backend: values live only as long as the
// process. It is the analogue of a per-session storage area.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemStore creates an empty session-scoped backend.
func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

func (m *MemStore) Name() string { return "session" }

// Get returns the value stored under key.
func (m *MemStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *MemStore) Set(key, value string) {
	if key == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// Remove deletes key. Removing an absent key is a no-op.
func (m *MemStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

// Keys lists every stored key.
func (m *MemStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}
