package generator

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/llm"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

type AnthropicProviderConfig struct {
	APIKey      string        `mapstructure:"api_key" validate:"required"`
	BaseURL     string        `mapstructure:"base_url" default:"https://api.anthropic.com" validate:"url"`
	Model       string        `mapstructure:"model" default:"claude-3-5-haiku-latest" validate:"required"`
	Temperature *float64      `mapstructure:"temperature" default:"0.7" validate:"gte=0,lte=1"`
	MaxTokens   int           `mapstructure:"max_tokens" default:"100" validate:"gte=1"`
	Timeout     time.Duration `mapstructure:"timeout" default:"60s"`
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(settings map[string]any, policy retry.Policy) (*LLMProvider, error) {
	var config AnthropicProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("anthropic provider config: base_url=%s model=%s timeout=%s", config.BaseURL, config.Model, config.Timeout)

	client, err := llm.NewAnthropic(llm.AnthropicConfig{
		BaseURL:     config.BaseURL,
		APIKey:      config.APIKey,
		Model:       config.Model,
		Temperature: *config.Temperature,
		MaxTokens:   config.MaxTokens,
		Timeout:     config.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create anthropic client")
	}
	return NewLLMProvider("anthropic", client, policy), nil
}
