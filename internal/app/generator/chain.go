package generator

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/retry"
)

// ProviderWithMetadata wraps a generator with its metadata.
type ProviderWithMetadata struct {
	Generator   Generator
	DisplayName string
}

// Chain tries multiple generators in order until one produces text.
type Chain struct {
	providers []ProviderWithMetadata
	timeout   time.Duration
}

// NewChain creates a new generator chain. A positive timeout bounds the whole
// chain, however many providers it falls back through.
func NewChain(providers []ProviderWithMetadata, timeout time.Duration) *Chain {
	return &Chain{
		providers: providers,
		timeout:   timeout,
	}
}

// Generate returns the first non-empty recommendation.
// When every provider fails the last error is returned; when at least one
// provider answered but none produced text, the result is empty with no error.
// Running out of the chain timeout is reported as retry.ErrCeilingExceeded.
func (c *Chain) Generate(ctx context.Context, playlistText string) (string, error) {
	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	answered := false

	for i, pm := range c.providers {
		zlog.Debug().Msgf("trying generator: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Generator.Name())

		text, err := pm.Generator.Generate(ctx, playlistText)
		if err != nil {
			zlog.Warn().Msgf("generator failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		answered = true

		if text == "" {
			zlog.Debug().Msgf("generator returned no recommendation: provider=%s", pm.DisplayName)
			continue
		}

		zlog.Info().Msgf("generator returned recommendation: provider=%s", pm.DisplayName)
		return text, nil
	}

	if answered || lastErr == nil {
		return "", nil
	}
	if ctx.Err() != nil && parent.Err() == nil {
		return "", errors.Mark(
			errors.Wrapf(lastErr, "generators ran out of time after %s", c.timeout),
			retry.ErrCeilingExceeded,
		)
	}
	return "", errors.Wrap(lastErr, "all generators failed")
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "generator_chain"
}
