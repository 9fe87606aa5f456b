package domain

import (
	"sync"
	"time"
)

// Session owns exactly one History. The history is only reachable through
// Do, which serializes every read-modify-write on it.
type Session struct {
	ID        SessionID
	CreatedAt time.Time

	mu      sync.Mutex
	history *History
}

func NewSession(id SessionID, maxHistory int, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		history:   NewHistory(maxHistory),
	}
}

// Do runs fn with exclusive access to the session's history. Concurrent
// callers block until the lock is released; there is no ordering guarantee
// between waiters.
func (s *Session) Do(fn func(h *History) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.history)
}

// View reads the current view under the session lock.
func (s *Session) View() View {
	var v View
	_ = s.Do(func(h *History) error {
		v = h.View()
		return nil
	})
	return v
}
