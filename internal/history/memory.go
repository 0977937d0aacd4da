package history

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions []Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = append([]Session{s}, m.sessions...)
	if len(m.sessions) > MaxSessions {
		m.sessions = m.sessions[:MaxSessions]
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, len(m.sessions))
	copy(out, m.sessions)
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}
