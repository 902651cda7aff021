// Package registry keeps visitor sessions in memory.
package registry

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/tunetaste/internal/domain/session"
)

var ErrUnknownSession = errors.New("unknown session")

// SessionRegistry manages visitor sessions with thread-safe access.
// Returned sessions are copies; mutate through the registry methods.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	now      func() time.Time
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session.Session),
		now:      time.Now,
	}
}

// Resolve returns the session for id, creating a new one when id is empty
// or unknown. The returned session's ID may differ from id.
func (r *SessionRegistry) Resolve(id string) session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok {
		s.Touch(now)
		return *s
	}

	s := session.NewSession(uuid.New().String(), now)
	r.sessions[s.ID] = s
	return *s
}

// Touch marks a known session as seen and returns it.
func (r *SessionRegistry) Touch(id string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return session.Session{}, errors.Wrapf(ErrUnknownSession, "session %s", id)
	}
	s.Touch(r.now())
	return *s, nil
}

// Get retrieves a session by ID.
func (r *SessionRegistry) Get(id string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return session.Session{}, errors.Wrapf(ErrUnknownSession, "session %s", id)
	}
	return *s, nil
}

// SetPlaylist stores the playlist URL on a session.
func (r *SessionRegistry) SetPlaylist(id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "session %s", id)
	}
	s.SetPlaylist(url, r.now())
	return nil
}

// RecordRequest counts a recommendation request on a session.
func (r *SessionRegistry) RecordRequest(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSession, "session %s", id)
	}
	s.RecordRequest(r.now())
	return nil
}

// Prune removes sessions idle for at least ttl and returns how many were removed.
func (r *SessionRegistry) Prune(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if s.IdleSince(now, ttl) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
