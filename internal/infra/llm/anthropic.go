package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

// AnthropicConfig configures an Anthropic Messages API client.
type AnthropicConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Anthropic is a client for the Anthropic /v1/messages endpoint.
type Anthropic struct {
	cfg    AnthropicConfig
	client anthropic.Client
}

// NewAnthropic creates a Messages API client.
// Retries are left to the caller, so the SDK's own are disabled.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, errors.New("anthropic max_tokens must be positive")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Anthropic{
		cfg: cfg,
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL+"/"),
			option.WithHTTPClient(newHTTPClient("anthropic", cfg.Timeout)),
			option.WithMaxRetries(0),
		),
	}, nil
}

// Complete sends one message and returns the concatenated text blocks of the reply.
func (c *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(c.cfg.Temperature),
	})
	if err != nil {
		return "", errors.Wrap(err, "anthropic messages request failed")
	}

	if len(msg.Content) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
