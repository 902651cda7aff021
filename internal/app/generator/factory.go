package generator

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/config"
)

// NewChainFromConfig creates a generator chain from configuration.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	if len(cfg.Generator.Providers) == 0 {
		return nil, errors.New("no generator providers configured")
	}

	policy := cfg.Retry.Generator.Policy()
	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Generator.Providers {
		var provider Generator
		var err error
		zlog.Debug().Msgf("creating generator: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "openai":
			provider, err = NewOpenAIProvider(pcfg.Settings, policy)

		case "anthropic":
			provider, err = NewAnthropicProvider(pcfg.Settings, policy)

		default:
			return nil, errors.Newf("unsupported generator type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create generator (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = pcfg.Type
		}
		providers = append(providers, ProviderWithMetadata{
			Generator:   provider,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("registered generator: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	// Every provider retries under the same policy, so the ceiling also bounds
	// the chain as a whole.
	return NewChain(providers, policy.MaxElapsed), nil
}
