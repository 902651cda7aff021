// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/osa030/tunetaste/internal/domain/track"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

// MaxFeatureBatch is the largest number of IDs the audio-features endpoint accepts.
const MaxFeatureBatch = 100

const pageLimit = 100

// Scopes are requested when authorizing a user, so the refresh token can read
// private and collaborative playlists.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
}

// Client is a Spotify API client.
type Client struct {
	client    *spotify.Client
	market    string
	batchSize int
	retrier   *retry.Retrier
	deadline  time.Duration // Zero when RequestTimeout is unset
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID          string
	ClientSecret      string
	RefreshToken      string // Optional; enables access to private playlists
	Market            string // Optional market for track relinking
	RequestsPerSecond float64
	Burst             int
	RequestTimeout    time.Duration
	FeatureBatchSize  int
	Retry             retry.Policy
}

// New creates a new Spotify client.
// Without a refresh token the client authenticates with client credentials,
// which is enough for public playlists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	var httpClient *http.Client
	if cfg.RefreshToken != "" {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithScopes(Scopes...),
		)
		// Get HTTP client with auto-refresh capability
		httpClient = auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	} else {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		httpClient = cc.Client(ctx)
	}

	return newClient(httpClient, cfg), nil
}

func newClient(httpClient *http.Client, cfg Config, opts ...spotify.ClientOption) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	wrapped := &http.Client{
		Transport: newTransport(httpClient.Transport, limiter),
		Timeout:   cfg.RequestTimeout,
	}

	batchSize := cfg.FeatureBatchSize
	if batchSize <= 0 || batchSize > MaxFeatureBatch {
		batchSize = MaxFeatureBatch
	}

	// The last attempt may start at the retry ceiling and still needs one
	// request timeout to finish.
	var deadline time.Duration
	if cfg.RequestTimeout > 0 {
		deadline = cfg.Retry.MaxElapsed + cfg.RequestTimeout
	}

	return &Client{
		client:    spotify.New(wrapped, opts...),
		market:    cfg.Market,
		batchSize: batchSize,
		retrier:   retry.New("spotify fetch", cfg.Retry),
		deadline:  deadline,
	}
}

// GetTrackURL returns the Spotify URL for a track.
func (c *Client) GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return track.Track{
		ID:          string(t.ID),
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		ReleaseDate: t.Album.ReleaseDate,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		URL:         c.GetTrackURL(string(t.ID)),
		Popularity:  int(t.Popularity),
		Explicit:    t.Explicit,
	}
}

func convertFeatures(f *spotify.AudioFeatures) *track.AudioFeatures {
	return &track.AudioFeatures{
		Danceability:     float64(f.Danceability),
		Energy:           float64(f.Energy),
		Key:              int(f.Key),
		Loudness:         float64(f.Loudness),
		Mode:             int(f.Mode),
		Speechiness:      float64(f.Speechiness),
		Acousticness:     float64(f.Acousticness),
		Instrumentalness: float64(f.Instrumentalness),
		Liveness:         float64(f.Liveness),
		Valence:          float64(f.Valence),
		Tempo:            float64(f.Tempo),
		TimeSignature:    int(f.TimeSignature),
	}
}
