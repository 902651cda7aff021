package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunetaste/internal/domain/playlist"
	"github.com/osa030/tunetaste/internal/domain/recommendation"
	"github.com/osa030/tunetaste/internal/domain/track"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

type fakeFetcher struct {
	tracks []track.Track
	err    error
	refs   []playlist.Reference
}

func (f *fakeFetcher) FetchTracks(ctx context.Context, ref playlist.Reference) ([]track.Track, error) {
	f.refs = append(f.refs, ref)
	return f.tracks, f.err
}

type fakeGenerator struct {
	text   string
	err    error
	calls  int
	inputs []string
}

func (g *fakeGenerator) Generate(ctx context.Context, playlistText string) (string, error) {
	g.calls++
	g.inputs = append(g.inputs, playlistText)
	return g.text, g.err
}

// codeMessages echoes the message code so tests can assert which one was used.
type codeMessages struct{}

func (codeMessages) GetMessage(code string) string {
	switch code {
	case "success":
		return "Musical taste understood"
	case "empty_result":
		return "No tracks found in the playlist."
	case "no_recommendation":
		return "No recommendation could be generated."
	default:
		return "msg:" + code
	}
}

const testURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"

var testTracks = []track.Track{
	{ID: "t1", Name: "Teardrop", Artists: []string{"Massive Attack"}, Album: "Mezzanine", Duration: 5 * time.Minute},
	{ID: "t2", Name: "Glory Box", Artists: []string{"Portishead"}, Album: "Dummy", Duration: 5 * time.Minute,
		Features: &track.AudioFeatures{Tempo: 118}},
}

func TestAnalyzer_Success(t *testing.T) {
	fetcher := &fakeFetcher{tracks: testTracks}
	gen := &fakeGenerator{text: "Roads - Dummy"}

	result := New(fetcher, gen, codeMessages{}).Analyze(context.Background(), testURL)

	assert.True(t, result.OK())
	assert.Equal(t, "Musical taste understood", result.Message)
	require.NotNil(t, result.Recommendation)
	assert.Equal(t, "Roads - Dummy", *result.Recommendation)

	assert.Equal(t, []playlist.Reference{"37i9dQZF1DXcBWIGoYBM5M"}, fetcher.refs)
	require.Len(t, gen.inputs, 1)
	assert.Equal(t, track.FormatTable(testTracks), gen.inputs[0])
	assert.True(t, strings.Contains(gen.inputs[0], "Teardrop"))
}

func TestAnalyzer_EmptyPlaylistSkipsGeneration(t *testing.T) {
	for _, tracks := range [][]track.Track{nil, {}} {
		gen := &fakeGenerator{text: "should not be used"}

		result := New(&fakeFetcher{tracks: tracks}, gen, codeMessages{}).Analyze(context.Background(), testURL)

		assert.Equal(t, "No tracks found in the playlist.", result.Message)
		assert.Nil(t, result.Recommendation)
		assert.Equal(t, recommendation.KindEmptyResult, result.Kind)
		assert.Equal(t, 0, gen.calls)
	}
}

func TestAnalyzer_EmptyGeneration(t *testing.T) {
	result := New(&fakeFetcher{tracks: testTracks}, &fakeGenerator{}, codeMessages{}).
		Analyze(context.Background(), testURL)

	assert.Equal(t, "No recommendation could be generated.", result.Message)
	assert.Nil(t, result.Recommendation)
	assert.Equal(t, recommendation.KindEmptyResult, result.Kind)
}

func TestAnalyzer_InvalidURL(t *testing.T) {
	fetcher := &fakeFetcher{tracks: testTracks}
	gen := &fakeGenerator{text: "x"}

	result := New(fetcher, gen, codeMessages{}).Analyze(context.Background(), "https://example.com/album/123")

	assert.Equal(t, recommendation.KindInvalidInput, result.Kind)
	assert.Equal(t, "msg:invalid_input", result.Message)
	assert.Nil(t, result.Recommendation)
	assert.Empty(t, fetcher.refs)
	assert.Equal(t, 0, gen.calls)
}

func TestAnalyzer_Failures(t *testing.T) {
	ceiling := errors.Mark(errors.New("gave up"), retry.ErrCeilingExceeded)

	tests := []struct {
		name        string
		fetchErr    error
		generateErr error
		wantKind    recommendation.Kind
		wantCalls   int
	}{
		{
			name:     "fetch timeout",
			fetchErr: ceiling,
			wantKind: recommendation.KindTimeoutExceeded,
		},
		{
			name:     "fetch remote failure",
			fetchErr: errors.New("spotify: HTTP 404: Not found"),
			wantKind: recommendation.KindRemoteFailure,
		},
		{
			name:        "generation timeout",
			generateErr: errors.Wrap(ceiling, "openai generation failed"),
			wantKind:    recommendation.KindTimeoutExceeded,
			wantCalls:   1,
		},
		{
			name:        "generation rate limited",
			generateErr: &retry.RateLimitError{RetryAfter: time.Second},
			wantKind:    recommendation.KindRateLimited,
			wantCalls:   1,
		},
		{
			name:        "explicit kind",
			generateErr: recommendation.NewError(recommendation.KindInvalidInput, errors.New("prompt too long")),
			wantKind:    recommendation.KindInvalidInput,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{tracks: testTracks, err: tt.fetchErr}
			gen := &fakeGenerator{text: "unused", err: tt.generateErr}

			result := New(fetcher, gen, codeMessages{}).Analyze(context.Background(), testURL)

			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, "msg:"+tt.wantKind.Code(), result.Message)
			assert.Nil(t, result.Recommendation, "no partial results")
			assert.Equal(t, tt.wantCalls, gen.calls)
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected recommendation.Kind
	}{
		{name: "nil", err: nil, expected: recommendation.KindNone},
		{name: "invalid reference", err: errors.Wrap(playlist.ErrInvalidReference, "parse"), expected: recommendation.KindInvalidInput},
		{name: "ceiling", err: errors.Mark(errors.New("x"), retry.ErrCeilingExceeded), expected: recommendation.KindTimeoutExceeded},
		{name: "deadline", err: errors.Wrap(context.DeadlineExceeded, "fetch"), expected: recommendation.KindTimeoutExceeded},
		{name: "rate limit", err: errors.Wrap(&retry.RateLimitError{}, "fetch"), expected: recommendation.KindRateLimited},
		{name: "other", err: errors.New("boom"), expected: recommendation.KindRemoteFailure},
		{
			name:     "explicit wins",
			err:      recommendation.NewError(recommendation.KindEmptyResult, retry.ErrCeilingExceeded),
			expected: recommendation.KindEmptyResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}
