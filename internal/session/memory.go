package session

import "sync"

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a store pre-loaded with s.
func NewMemoryStoreWith(s Session) *MemoryStore {
	return &MemoryStore{current: &s}
}

func (m *MemoryStore) Save(s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *MemoryStore) Load() (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return Session{}, false, nil
	}
	return *m.current, true, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
