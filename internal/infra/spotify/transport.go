package spotify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/osa030/tunetaste/internal/infra/retry"
)

// StatusError is returned for non-2xx responses from the Web API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify: HTTP %d: %s", e.StatusCode, e.Message)
}

// transport throttles outgoing requests and turns error responses into
// errors, so that 429 responses surface as *retry.RateLimitError with the
// server's Retry-After hint.
type transport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	now     func() time.Time
}

func newTransport(base http.RoundTripper, limiter *rate.Limiter) *transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base, limiter: limiter, now: time.Now}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Wrap(err, "spotify rate limiter")
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retry.RateLimitError{
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), t.now()),
			Err:        statusErr,
		}
	}
	return nil, statusErr
}

// errorMessage extracts the message from a Web API error body:
// {"error": {"status": 404, "message": "..."}}.
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
