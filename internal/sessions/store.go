// Package sessions holds the in-process registry of recording sessions.
package sessions

import (
	"sort"
	"sync"

	"github.com/shookla/walkthroughs/internal/models"
)

// Store is the session registry used by the orchestrator. Implementations return copies so callers
// never share memory with the stored record.
type Store interface {
	Get(id string) (models.RecordingSession, bool)
	Put(s models.RecordingSession)
	Delete(id string)
	List() []models.RecordingSession
}

// MemoryStore keeps sessions in a map for the lifetime of the process.
// Sessions are not visible to other processes.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.RecordingSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.RecordingSession)}
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(id string) (models.RecordingSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.RecordingSession{}, false
	}
	return clone(s), true
}

// Put inserts or replaces the session.
func (m *MemoryStore) Put(s models.RecordingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
}

// Delete removes the session if present.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// List returns copies of all sessions, oldest first.
func (m *MemoryStore) List() []models.RecordingSession {
	m.mu.RLock()
	out := make([]models.RecordingSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, clone(s))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func clone(s models.RecordingSession) models.RecordingSession {
	if s.EmailSent != nil {
		v := *s.EmailSent
		s.EmailSent = &v
	}
	return s
}
