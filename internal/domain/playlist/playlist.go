// Package playlist provides the Playlist domain entity and playlist references.
package playlist

import (
	"regexp"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunetaste/internal/domain/track"
)

// ErrInvalidReference is returned when no playlist identifier can be found in a URL.
var ErrInvalidReference = errors.New("invalid playlist reference")

// Matches https://open.spotify.com/playlist/<id> anywhere in the input, or an
// input starting with spotify:playlist:<id>.
var referencePattern = regexp.MustCompile(`playlist/([A-Za-z0-9]+)|^spotify:playlist:([A-Za-z0-9]+)`)

// Reference is the catalog identifier of a playlist.
type Reference string

// ParseReference extracts the playlist identifier from a playlist URL.
func ParseReference(url string) (Reference, error) {
	if m := referencePattern.FindStringSubmatch(url); m != nil {
		for _, id := range m[1:] {
			if id != "" {
				return Reference(id), nil
			}
		}
	}
	return "", errors.Wrapf(ErrInvalidReference, "no playlist id in %q", url)
}

// ID returns the identifier as a string.
func (r Reference) ID() string {
	return string(r)
}

// URL returns the public Spotify URL for the playlist.
func (r Reference) URL() string {
	return "https://open.spotify.com/playlist/" + string(r)
}

// Playlist represents a fetched Spotify playlist.
type Playlist struct {
	Ref    Reference     // Playlist identifier
	Tracks []track.Track // Tracks in the playlist
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// WithFeatures returns the number of tracks that carry audio features.
func (p *Playlist) WithFeatures() int {
	n := 0
	for _, t := range p.Tracks {
		if t.Features != nil {
			n++
		}
	}
	return n
}
