// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/tunetaste/internal/infra/retry"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Retry     RetryConfig     `yaml:"retry"`
	Generator GeneratorConfig `yaml:"generator"`
	Messages  MessagesConfig  `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":5000"`
	Mode            string        `yaml:"mode" default:"release" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"7m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	Hooks           HooksConfig   `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// SessionConfig represents visitor session configuration.
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" default:"tunetaste_session" validate:"required"`
	TTL           time.Duration `yaml:"ttl" default:"24h"`
	PruneInterval time.Duration `yaml:"prune_interval" default:"10m"`
	Secure        bool          `yaml:"secure"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID          string        `yaml:"client_id" validate:"required"`
	ClientSecret      string        `yaml:"client_secret" validate:"required"`
	RefreshToken      string        `yaml:"refresh_token"`
	Market            string        `yaml:"market" validate:"omitempty,len=2"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"5" validate:"gte=0"`
	Burst             int           `yaml:"burst" default:"5" validate:"gte=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" default:"30s"`
	FeatureBatchSize  int           `yaml:"feature_batch_size" default:"100" validate:"gte=1,lte=100"`
}

// RetryConfig holds the retry policies of the two outbound calls.
type RetryConfig struct {
	Catalog   PolicyConfig `yaml:"catalog"`
	Generator PolicyConfig `yaml:"generator"`
}

// PolicyConfig represents a bounded retry policy.
// The delays are pointers so an explicit 0s survives defaulting.
type PolicyConfig struct {
	MaxElapsed     time.Duration  `yaml:"max_elapsed" default:"3m" validate:"gt=0"`
	Delay          *time.Duration `yaml:"delay" default:"5s" validate:"gte=0"`
	RateLimitDelay *time.Duration `yaml:"rate_limit_delay" default:"5s" validate:"gte=0"`
}

// Policy converts the configuration into a retry policy.
func (p PolicyConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxElapsed:     p.MaxElapsed,
		Delay:          durationValue(p.Delay),
		RateLimitDelay: durationValue(p.RateLimitDelay),
	}
}

func durationValue(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}

// GeneratorConfig represents recommendation generator configuration.
type GeneratorConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single generator backend configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=openai anthropic"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success            string `yaml:"success" default:"Musical taste understood"`
	PlaylistSaved      string `yaml:"playlist_saved" default:"Musical taste understood! You can now get song recommendations."`
	InvalidPlaylistURL string `yaml:"invalid_playlist_url" default:"Please provide a valid playlist URL."`
	PlaylistRequired   string `yaml:"playlist_required" default:"Please provide a playlist before getting recommendations."`
	NoRecommendation   string `yaml:"no_recommendation" default:"No recommendation could be generated."`
	InvalidInput       string `yaml:"invalid_input" default:"That does not look like a Spotify playlist link."`
	EmptyResult        string `yaml:"empty_result" default:"No tracks found in the playlist."`
	RateLimited        string `yaml:"rate_limited" default:"The music service is busy right now. Please try again in a moment."`
	RemoteFailure      string `yaml:"remote_failure" default:"An error occurred while processing the playlist. Please try again."`
	TimeoutExceeded    string `yaml:"timeout_exceeded" default:"The request took too long to complete. Please try again later."`
	DefaultError       string `yaml:"default_error" default:"An unexpected error occurred."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
// A missing file is not an error, so the service can run from environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.setProviderKey("openai", v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.setProviderKey("anthropic", v)
	}
}

// setProviderKey sets api_key on every provider of the given type.
// OpenAI is added as the sole provider when none is configured.
func (c *Config) setProviderKey(providerType, key string) {
	if len(c.Generator.Providers) == 0 && providerType == "openai" {
		c.Generator.Providers = append(c.Generator.Providers, ProviderConfig{
			Type:        "openai",
			DisplayName: "OpenAI",
		})
	}
	for i := range c.Generator.Providers {
		p := &c.Generator.Providers[i]
		if p.Type != providerType {
			continue
		}
		if p.Settings == nil {
			p.Settings = make(map[string]any)
		}
		p.Settings["api_key"] = key
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "playlist_saved":
		return c.Messages.PlaylistSaved
	case "invalid_playlist_url":
		return c.Messages.InvalidPlaylistURL
	case "playlist_required":
		return c.Messages.PlaylistRequired
	case "no_recommendation":
		return c.Messages.NoRecommendation
	case "invalid_input":
		return c.Messages.InvalidInput
	case "empty_result":
		return c.Messages.EmptyResult
	case "rate_limited":
		return c.Messages.RateLimited
	case "remote_failure":
		return c.Messages.RemoteFailure
	case "timeout_exceeded":
		return c.Messages.TimeoutExceeded
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateTimeouts(); err != nil {
		return err
	}

	return nil
}

// validateTimeouts checks that a response can outlive the longest analysis:
// the catalog fetch is cut off one request timeout after its ceiling, and the
// generator chain as a whole is cut off at its ceiling.
func (c *Config) validateTimeouts() error {
	worst := c.Retry.Catalog.MaxElapsed + c.Spotify.RequestTimeout + c.Retry.Generator.MaxElapsed
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= worst {
		return errors.Newf("write_timeout (%s) must exceed the longest analysis (%s): "+
			"catalog ceiling + spotify request_timeout + generator ceiling",
			c.Server.WriteTimeout, worst)
	}
	if c.Session.PruneInterval < 0 || c.Session.TTL < 0 {
		return errors.New("session ttl and prune_interval must not be negative")
	}
	return nil
}
