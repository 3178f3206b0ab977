package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Expired sessions are evicted
// whenever a new one is saved.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowFunc  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session), nowFunc: time.Now}
}

func (m *MemoryStore) Save(ctx context.Context, s Session) error {
	now := m.nowFunc()
	m.mu.Lock()
	for id, existing := range m.sessions {
		if !now.Before(existing.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
