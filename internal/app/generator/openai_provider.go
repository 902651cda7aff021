package generator

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/llm"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

// OpenAIProviderConfig holds the settings of an openai provider.
// Temperature is a pointer so an explicit 0 is kept.
type OpenAIProviderConfig struct {
	APIKey      string        `mapstructure:"api_key" validate:"required"`
	BaseURL     string        `mapstructure:"base_url" default:"https://api.openai.com/v1" validate:"url"`
	Model       string        `mapstructure:"model" default:"gpt-4o-mini" validate:"required"`
	Temperature *float64      `mapstructure:"temperature" default:"0.7" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" default:"100" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" default:"60s"`
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible chat-completions API.
func NewOpenAIProvider(settings map[string]any, policy retry.Policy) (*LLMProvider, error) {
	var config OpenAIProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("openai provider config: base_url=%s model=%s timeout=%s", config.BaseURL, config.Model, config.Timeout)

	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL:     config.BaseURL,
		APIKey:      config.APIKey,
		Model:       config.Model,
		Temperature: *config.Temperature,
		MaxTokens:   config.MaxTokens,
		Timeout:     config.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create openai client")
	}
	return NewLLMProvider("openai", client, policy), nil
}
