// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a Spotify track entity.
// Contains only information retrieved from Spotify API.
type Track struct {
	ID          string         // Spotify Track ID
	Name        string         // Track name
	Artists     []string       // Artist names
	Album       string         // Album name
	ReleaseDate string         // Album release date as reported by Spotify
	Duration    time.Duration  // Track duration
	URL         string         // Spotify URL
	Popularity  int            // Popularity score (0-100)
	Explicit    bool           // Explicit content flag
	Features    *AudioFeatures // Audio analysis, nil when unavailable
}

// AudioFeatures holds Spotify's audio analysis of a track.
type AudioFeatures struct {
	Danceability     float64
	Energy           float64
	Key              int
	Loudness         float64 // dB
	Mode             int     // 1 major, 0 minor
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64 // BPM
	TimeSignature    int
}

// ArtistNames joins the artist names for display.
func (t *Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

var pitchClasses = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyName returns the pitch class and mode, e.g. "F# minor".
// Returns an empty string when the key was not detected.
func (f *AudioFeatures) KeyName() string {
	if f.Key < 0 || f.Key >= len(pitchClasses) {
		return ""
	}
	mode := "minor"
	if f.Mode == 1 {
		mode = "major"
	}
	return pitchClasses[f.Key] + " " + mode
}
