package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the retrier sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestRetrier(policy Policy) (*Retrier, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := New("test op", policy)
	r.now = clock.Now
	r.sleep = clock.Sleep
	return r, clock
}

var testPolicy = Policy{
	MaxElapsed:     3 * time.Minute,
	Delay:          5 * time.Second,
	RateLimitDelay: 10 * time.Second,
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	r, clock := newTestRetrier(testPolicy)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.sleeps)
}

func TestRetrier_Delays(t *testing.T) {
	tests := []struct {
		name      string
		failure   error
		wantSleep time.Duration
	}{
		{
			name:      "rate limit with hint",
			failure:   &RateLimitError{RetryAfter: 2 * time.Second},
			wantSleep: 2 * time.Second,
		},
		{
			name:      "rate limit without hint",
			failure:   &RateLimitError{},
			wantSleep: 10 * time.Second,
		},
		{
			name:      "wrapped rate limit",
			failure:   errors.Wrap(&RateLimitError{RetryAfter: 7 * time.Second}, "get playlist items"),
			wantSleep: 7 * time.Second,
		},
		{
			name:      "remote failure",
			failure:   errors.New("502 bad gateway"),
			wantSleep: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, clock := newTestRetrier(testPolicy)

			calls := 0
			err := r.Do(context.Background(), func(ctx context.Context) error {
				calls++
				if calls == 1 {
					return tt.failure
				}
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, 2, calls)
			assert.Equal(t, []time.Duration{tt.wantSleep}, clock.sleeps)
		})
	}
}

func TestRetrier_CeilingNeverSucceeds(t *testing.T) {
	r, clock := newTestRetrier(testPolicy)
	start := clock.now

	var attemptTimes []time.Duration
	failure := errors.New("503 service unavailable")
	err := r.Do(context.Background(), func(ctx context.Context) error {
		attemptTimes = append(attemptTimes, clock.now.Sub(start))
		return failure
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCeilingExceeded))
	assert.True(t, errors.Is(err, failure), "last failure should be preserved")

	// Attempts at 0s, 5s, ..., 180s.
	assert.Len(t, attemptTimes, 37)
	assert.Equal(t, 3*time.Minute, attemptTimes[len(attemptTimes)-1])
	assert.Equal(t, 3*time.Minute, clock.now.Sub(start))
}

func TestRetrier_CeilingBoundary(t *testing.T) {
	policy := Policy{MaxElapsed: 10 * time.Second, Delay: 3 * time.Second}
	r, clock := newTestRetrier(policy)
	start := clock.now

	var attemptTimes []time.Duration
	err := r.Do(context.Background(), func(ctx context.Context) error {
		attemptTimes = append(attemptTimes, clock.now.Sub(start))
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCeilingExceeded))

	// The attempt at 9s is below the ceiling and must not give up; the pause
	// is then capped so the final attempt lands exactly on the ceiling.
	assert.Equal(t, []time.Duration{0, 3 * time.Second, 6 * time.Second, 9 * time.Second, 10 * time.Second}, attemptTimes)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second, time.Second}, clock.sleeps)
}

func TestRetrier_NotBeforeCeiling(t *testing.T) {
	policy := Policy{MaxElapsed: time.Minute, Delay: time.Second}
	r, clock := newTestRetrier(policy)
	start := clock.now

	// Fails until just under the ceiling, then succeeds.
	err := r.Do(context.Background(), func(ctx context.Context) error {
		if clock.now.Sub(start) < 59*time.Second {
			return errors.New("still failing")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 59*time.Second, clock.now.Sub(start))
}

func TestRetrier_LongHintCappedToCeiling(t *testing.T) {
	policy := Policy{MaxElapsed: 10 * time.Second, Delay: time.Second}
	r, clock := newTestRetrier(policy)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &RateLimitError{RetryAfter: time.Minute}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCeilingExceeded))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{10 * time.Second}, clock.sleeps)

	var rl *RateLimitError
	assert.True(t, errors.As(err, &rl), "rate limit cause should stay reachable")
}

func TestRetrier_Permanent(t *testing.T) {
	r, clock := newTestRetrier(testPolicy)

	notFound := errors.New("404 not found")
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errors.Wrap(notFound, "get playlist"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, notFound))
	assert.False(t, errors.Is(err, ErrCeilingExceeded))
	assert.Empty(t, clock.sleeps)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestRetrier_ContextCanceled(t *testing.T) {
	r := New("test op", Policy{MaxElapsed: time.Minute, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrCeilingExceeded))
}

func TestRateLimitError_Error(t *testing.T) {
	assert.Equal(t, "rate limited", (&RateLimitError{}).Error())
	assert.Equal(t, "rate limited, retry after 3s: slow down",
		(&RateLimitError{RetryAfter: 3 * time.Second, Err: errors.New("slow down")}).Error())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "empty", value: "", expected: 0},
		{name: "seconds", value: "3", expected: 3 * time.Second},
		{name: "seconds with spaces", value: " 12 ", expected: 12 * time.Second},
		{name: "zero", value: "0", expected: 0},
		{name: "negative", value: "-5", expected: 0},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), expected: 30 * time.Second},
		{name: "http date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), expected: 0},
		{name: "garbage", value: "soon", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRetryAfter(tt.value, now))
		})
	}
}
