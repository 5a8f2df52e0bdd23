package storage

import (
	"sync"
	"time"
)

// MemoryStore implementación en memoria de Store, pensada para tests.
// Ignora los TTL: los tests no dependen de expiración.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	sets   map[string]map[string]bool
	lists  map[string][]string
}

// NewMemoryStore crea un almacén en memoria vacío
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		sets:   make(map[string]map[string]bool),
		lists:  make(map[string][]string),
	}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.sets, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) AddToSet(key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sets[key] == nil {
		m.sets[key] = make(map[string]bool)
	}
	for _, member := range members {
		m.sets[key][member] = true
	}
	return nil
}

func (m *MemoryStore) GetSetMembers(key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryStore) RemoveFromSet(key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sets[key] != nil {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *MemoryStore) PushToList(key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *MemoryStore) GetList(key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, len(m.lists[key]))
	copy(list, m.lists[key])
	return list, nil
}
