package memory

import (
	"sync"
	"time"

	"github.com/PabloGalante/tonal/internal/domain"
)

// SessionStore keeps one Session per id for the lifetime of the process.
// The store lock only covers lookup and creation; each Session carries its
// own lock for history mutations, so unrelated sessions never contend.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[domain.SessionID]*domain.Session
	maxHistory int
	now        func() time.Time
}

// NewSessionStore creates a store whose histories keep at most maxHistory
// states (0 = unlimited).
func NewSessionStore(maxHistory int) *SessionStore {
	return &SessionStore{
		sessions:   make(map[domain.SessionID]*domain.Session),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Resolve returns the session for id, creating it on first reference.
func (s *SessionStore) Resolve(id domain.SessionID) *domain.Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it between the two locks.
	if sess, ok := s.sessions[id]; ok {
		return sess
	}

	sess = domain.NewSession(id, s.maxHistory, s.now())
	s.sessions[id] = sess
	return sess
}

// Reset empties the session's history, creating the session if needed.
func (s *SessionStore) Reset(id domain.SessionID) domain.View {
	var v domain.View
	_ = s.Resolve(id).Do(func(h *domain.History) error {
		v = h.Reset()
		return nil
	})
	return v
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ domain.SessionStore = (*SessionStore)(nil)
