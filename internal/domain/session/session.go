// Package session provides the per-visitor Session entity.
package session

import "time"

// Session represents one visitor of the web UI.
type Session struct {
	ID            string    // UUID, stored in the session cookie
	PlaylistURL   string    // Last submitted playlist URL
	CreatedAt     time.Time // Creation time
	LastSeenAt    time.Time // Last request time
	TotalRequests int       // Number of recommendation requests
}

// NewSession creates a new visitor session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

// SetPlaylist stores the playlist URL submitted by the visitor.
func (s *Session) SetPlaylist(url string, now time.Time) {
	s.PlaylistURL = url
	s.LastSeenAt = now
}

// HasPlaylist reports whether a playlist has been submitted.
func (s *Session) HasPlaylist() bool {
	return s.PlaylistURL != ""
}

// RecordRequest counts a recommendation request.
func (s *Session) RecordRequest(now time.Time) {
	s.TotalRequests++
	s.LastSeenAt = now
}

// Touch updates the last seen time.
func (s *Session) Touch(now time.Time) {
	s.LastSeenAt = now
}

// IdleSince reports whether the session has been idle for at least ttl.
func (s *Session) IdleSince(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastSeenAt) >= ttl
}
