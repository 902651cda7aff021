// Package generator produces song recommendations from serialized playlists.
package generator

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/llm"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

// SystemPrompt is sent with every generation request.
const SystemPrompt = "You are a music recommendation assistant. Analyze the playlist below, " +
	"including its audio features, and recommend exactly one new song that is not already in the playlist. " +
	"Respond only in the format 'Song - Album'."

// Generator is the interface for recommendation backends.
type Generator interface {
	// Generate returns the recommendation text for a serialized playlist.
	// An empty string means no recommendation was produced.
	Generate(ctx context.Context, playlistText string) (string, error)

	// Name returns the provider name (used in config).
	Name() string
}

// LLMProvider generates recommendations through a text-completion API,
// retrying transient failures with a bounded retrier.
type LLMProvider struct {
	name      string
	completer llm.Completer
	retrier   *retry.Retrier
}

// NewLLMProvider creates a provider around a completion client.
func NewLLMProvider(name string, completer llm.Completer, policy retry.Policy) *LLMProvider {
	return &LLMProvider{
		name:      name,
		completer: completer,
		retrier:   retry.New(name+" generation", policy),
	}
}

// Generate sends the playlist with SystemPrompt and returns the trimmed reply.
func (p *LLMProvider) Generate(ctx context.Context, playlistText string) (string, error) {
	var text string
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		out, err := p.completer.Complete(ctx, SystemPrompt, playlistText)
		if err != nil {
			if errors.Is(err, llm.ErrEmptyResponse) {
				text = ""
				return nil
			}
			return classify(err)
		}
		text = out
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s generation failed", p.name)
	}
	return strings.TrimSpace(text), nil
}

// Name returns the provider name.
func (p *LLMProvider) Name() string {
	return p.name
}

// classify maps API errors onto the retrier's vocabulary: 429 carries its
// Retry-After hint, 5xx is retried, other 4xx are permanent. Transport
// errors are retried.
func classify(err error) error {
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.StatusCode == 429:
		return &retry.RateLimitError{RetryAfter: apiErr.RetryAfter, Err: err}
	case apiErr.Retryable():
		return err
	default:
		return retry.Permanent(err)
	}
}

// decodeSettings decodes a provider settings map into out, then applies
// defaults and validation.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		zlog.Error().Msgf("generator settings validation failed: %v", err)
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
