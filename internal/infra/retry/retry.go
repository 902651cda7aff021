// Package retry provides a bounded retry loop guarded by a wall-clock ceiling.
package retry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrCeilingExceeded marks the error returned once the retry ceiling is reached.
var ErrCeilingExceeded = errors.New("retry ceiling exceeded")

// Policy configures a Retrier.
type Policy struct {
	MaxElapsed     time.Duration // Wall-clock ceiling for all attempts
	Delay          time.Duration // Pause after an ordinary failure
	RateLimitDelay time.Duration // Pause after a rate-limit response without a hint
}

// RateLimitError reports that an attempt was rejected by a rate limit.
// RetryAfter is the server-provided hint; zero means no hint was given.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retrier runs an operation until it succeeds, fails permanently, or the
// policy's ceiling is reached.
type Retrier struct {
	name   string
	policy Policy

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Retrier. name identifies the operation in logs and errors.
func New(name string, policy Policy) *Retrier {
	return &Retrier{
		name:   name,
		policy: policy,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Policy returns the retrier's policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls op until it returns nil.
//
// A *RateLimitError pauses for its RetryAfter hint (or RateLimitDelay when the
// hint is zero); any other error pauses for Delay. Errors wrapped with
// Permanent are returned unwrapped right away. Once the time since the first
// attempt reaches MaxElapsed, the last failure is returned marked with
// ErrCeilingExceeded. Pauses never extend past the ceiling, so a final attempt
// always runs at the ceiling itself.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	start := r.now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s: canceled before attempt %d", r.name, attempt)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				zlog.Info().Msgf("%s succeeded after %d attempts", r.name, attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		elapsed := r.now().Sub(start)
		if elapsed >= r.policy.MaxElapsed {
			zlog.Error().Msgf("%s: giving up after %d attempts in %s: %v", r.name, attempt, elapsed, err)
			return errors.Mark(
				errors.Wrapf(err, "%s: gave up after %d attempts in %s", r.name, attempt, elapsed),
				ErrCeilingExceeded,
			)
		}

		delay := r.policy.Delay
		var rl *RateLimitError
		if errors.As(err, &rl) {
			delay = rl.RetryAfter
			if delay <= 0 {
				delay = r.policy.RateLimitDelay
			}
		}
		if remaining := r.policy.MaxElapsed - elapsed; delay > remaining {
			delay = remaining
		}

		zlog.Warn().Msgf("%s failed (attempt %d), retrying in %s: %v", r.name, attempt, delay, err)

		if err := r.sleep(ctx, delay); err != nil {
			return errors.Wrapf(err, "%s: interrupted while waiting to retry", r.name)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter parses a Retry-After header value, given either as delay
// seconds or as an HTTP date. It returns zero when the value is absent or
// unparseable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
