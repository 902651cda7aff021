// Package llm provides clients for text-generation APIs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/infra/retry"
)

// ErrEmptyResponse is returned when the API answers without any choices or content blocks.
var ErrEmptyResponse = errors.New("empty completion response")

// APIError is returned for non-2xx responses.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration // Parsed Retry-After header, zero if absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Completer sends one system+user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// statusTransport turns non-2xx responses into *APIError before the SDK
// sees them, so status and Retry-After reach the caller the same way for
// every provider.
type statusTransport struct {
	provider string
	base     http.RoundTripper
	now      func() time.Time
}

func newHTTPClient(provider string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &statusTransport{
			provider: provider,
			base:     http.DefaultTransport,
			now:      time.Now,
		},
		Timeout: timeout,
	}
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	zlog.Debug().Msgf("sending %s request to %s", t.provider, req.URL.Redacted())

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &APIError{
		Provider:   t.provider,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
		RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), t.now()),
	}
}

// errorMessage pulls the message out of {"error": {"message": "..."}}, which
// both OpenAI-compatible and Anthropic APIs use.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
