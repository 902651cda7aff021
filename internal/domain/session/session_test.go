package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("session-1", now)

	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.LastSeenAt)
	assert.False(t, s.HasPlaylist())
	assert.Equal(t, 0, s.TotalRequests)
}

func TestSession_SetPlaylist(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("session-1", now)

	later := now.Add(time.Minute)
	s.SetPlaylist("https://open.spotify.com/playlist/abc", later)

	assert.True(t, s.HasPlaylist())
	assert.Equal(t, "https://open.spotify.com/playlist/abc", s.PlaylistURL)
	assert.Equal(t, later, s.LastSeenAt)
	assert.Equal(t, now, s.CreatedAt)
}

func TestSession_RecordRequest(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("session-1", now)

	s.RecordRequest(now.Add(time.Second))
	s.RecordRequest(now.Add(2 * time.Second))

	assert.Equal(t, 2, s.TotalRequests)
	assert.Equal(t, now.Add(2*time.Second), s.LastSeenAt)
}

func TestSession_IdleSince(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSeen time.Time
		ttl      time.Duration
		expected bool
	}{
		{name: "fresh", lastSeen: now.Add(-time.Minute), ttl: time.Hour, expected: false},
		{name: "exactly ttl", lastSeen: now.Add(-time.Hour), ttl: time.Hour, expected: true},
		{name: "expired", lastSeen: now.Add(-2 * time.Hour), ttl: time.Hour, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("session-1", tt.lastSeen)
			assert.Equal(t, tt.expected, s.IdleSince(now, tt.ttl))
		})
	}
}
