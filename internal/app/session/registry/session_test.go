package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*SessionRegistry, *time.Time) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewSessionRegistry()
	r.now = func() time.Time { return now }
	return r, &now
}

func TestSessionRegistry_Resolve(t *testing.T) {
	r, _ := newTestRegistry()

	first := r.Resolve("")
	_, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count())

	again := r.Resolve(first.ID)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, r.Count())

	unknown := r.Resolve("not-a-session")
	assert.NotEqual(t, "not-a-session", unknown.ID)
	assert.NotEqual(t, first.ID, unknown.ID)
	assert.Equal(t, 2, r.Count())
}

func TestSessionRegistry_Touch(t *testing.T) {
	r, now := newTestRegistry()

	_, err := r.Touch("missing")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	assert.Equal(t, 0, r.Count(), "touching an unknown id must not create a session")

	s := r.Resolve("")
	*now = now.Add(time.Hour)

	touched, err := r.Touch(s.ID)
	require.NoError(t, err)
	assert.Equal(t, *now, touched.LastSeenAt)
	assert.Equal(t, 0, r.Prune(30*time.Minute))
}

func TestSessionRegistry_SetPlaylist(t *testing.T) {
	r, _ := newTestRegistry()
	s := r.Resolve("")

	require.NoError(t, r.SetPlaylist(s.ID, "https://open.spotify.com/playlist/abc"))

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://open.spotify.com/playlist/abc", got.PlaylistURL)

	// Mutating the copy must not leak into the registry.
	got.PlaylistURL = "changed"
	again, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://open.spotify.com/playlist/abc", again.PlaylistURL)
}

func TestSessionRegistry_UnknownSession(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.Get("missing")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	assert.True(t, errors.Is(r.SetPlaylist("missing", "url"), ErrUnknownSession))
	assert.True(t, errors.Is(r.RecordRequest("missing"), ErrUnknownSession))
}

func TestSessionRegistry_RecordRequest(t *testing.T) {
	r, _ := newTestRegistry()
	s := r.Resolve("")

	require.NoError(t, r.RecordRequest(s.ID))
	require.NoError(t, r.RecordRequest(s.ID))

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRequests)
}

func TestSessionRegistry_Prune(t *testing.T) {
	r, now := newTestRegistry()

	stale := r.Resolve("")
	*now = now.Add(30 * time.Minute)
	fresh := r.Resolve("")
	*now = now.Add(40 * time.Minute)

	removed := r.Prune(time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Count())

	_, err := r.Get(stale.ID)
	assert.True(t, errors.Is(err, ErrUnknownSession))
	_, err = r.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSessionRegistry_Concurrent(t *testing.T) {
	r := NewSessionRegistry()
	s := r.Resolve("")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.RecordRequest(s.ID)
			_, _ = r.Get(s.ID)
			r.Resolve(s.ID)
		}()
	}
	wg.Wait()

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.TotalRequests)
}
