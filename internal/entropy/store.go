package entropy

import (
	"sync"
	"time"
)

// Store holds session state. Implementations must apply Update atomically
// per session so concurrent requests for one id cannot lose increments.
type Store interface {
	// Get returns a copy of the session, or false if it does not exist.
	Get(id string) (SessionState, bool)
	// Create stores a fresh zero-entropy session, replacing any existing one.
	Create(id string) SessionState
	// Update applies fn to the session, creating it first if needed, and
	// returns a copy of the result.
	Update(id string, fn func(s *SessionState)) SessionState
	// Reset zeroes the session and truncates its log to a single marker.
	Reset(id string) SessionState
	// Len returns the number of live sessions.
	Len() int
}

// MemoryStore is an in-process Store. Sessions vanish with the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SessionState),
		now:      time.Now,
	}
}

func (m *MemoryStore) newState(id string) *SessionState {
	return &SessionState{
		ID:        id,
		Mutations: []string{},
		CreatedAt: m.now(),
	}
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(id string) (SessionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return SessionState{}, false
	}
	return s.Clone(), true
}

// Create stores a fresh session under id.
func (m *MemoryStore) Create(id string) SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.newState(id)
	m.sessions[id] = s
	return s.Clone()
}

// Update mutates the session under the store lock.
func (m *MemoryStore) Update(id string, fn func(s *SessionState)) SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.newState(id)
		m.sessions[id] = s
	}
	fn(s)
	return s.Clone()
}

// Reset zeroes the session, keeping its creation time.
func (m *MemoryStore) Reset(id string) SessionState {
	return m.Update(id, func(s *SessionState) {
		s.Entropy = 0
		s.Attempts = 0
		s.Collapsed = false
		s.Mutations = []string{resetLogEntry}
	})
}

// Len returns the number of sessions held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
