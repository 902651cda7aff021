// Package analysis turns a playlist URL into a song recommendation.
package analysis

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/domain/playlist"
	"github.com/osa030/tunetaste/internal/domain/recommendation"
	"github.com/osa030/tunetaste/internal/domain/track"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

// TrackFetcher retrieves the tracks of a playlist.
type TrackFetcher interface {
	FetchTracks(ctx context.Context, ref playlist.Reference) ([]track.Track, error)
}

// Generator produces a recommendation from a serialized playlist.
type Generator interface {
	Generate(ctx context.Context, playlistText string) (string, error)
}

// Messages resolves message codes to user-facing text.
type Messages interface {
	GetMessage(code string) string
}

// Analyzer fetches a playlist and asks a generator for a recommendation.
type Analyzer struct {
	fetcher   TrackFetcher
	generator Generator
	messages  Messages
}

// New creates an Analyzer.
func New(fetcher TrackFetcher, generator Generator, messages Messages) *Analyzer {
	return &Analyzer{
		fetcher:   fetcher,
		generator: generator,
		messages:  messages,
	}
}

// Analyze never returns partial results: the outcome is either a
// recommendation or a message explaining why there is none.
func (a *Analyzer) Analyze(ctx context.Context, playlistURL string) recommendation.Result {
	ref, err := playlist.ParseReference(playlistURL)
	if err != nil {
		return a.fail(err)
	}

	tracks, err := a.fetcher.FetchTracks(ctx, ref)
	if err != nil {
		return a.fail(errors.Wrap(err, "failed to fetch playlist"))
	}

	p := playlist.Playlist{Ref: ref, Tracks: tracks}
	if len(p.Tracks) == 0 {
		zlog.Info().Msgf("playlist %s has no tracks", ref)
		return recommendation.Result{
			Message: a.messages.GetMessage(recommendation.KindEmptyResult.Code()),
			Kind:    recommendation.KindEmptyResult,
		}
	}
	zlog.Info().Msgf("playlist %s: %d tracks (%d with audio features), total %s",
		ref, len(p.Tracks), p.WithFeatures(), p.TotalDuration())

	text, err := a.generator.Generate(ctx, track.FormatTable(p.Tracks))
	if err != nil {
		return a.fail(errors.Wrap(err, "failed to generate recommendation"))
	}
	if text == "" {
		return recommendation.Result{
			Message: a.messages.GetMessage("no_recommendation"),
			Kind:    recommendation.KindEmptyResult,
		}
	}

	zlog.Info().Msgf("recommendation for playlist %s: %s", ref, text)
	return recommendation.Result{
		Message:        a.messages.GetMessage("success"),
		Recommendation: &text,
	}
}

func (a *Analyzer) fail(err error) recommendation.Result {
	kind := KindOf(err)
	if kind == recommendation.KindInvalidInput {
		zlog.Warn().Msgf("analysis rejected: %v", err)
	} else {
		zlog.Error().Msgf("analysis failed (%s): %v", kind, err)
	}
	return recommendation.Result{
		Message: a.messages.GetMessage(kind.Code()),
		Kind:    kind,
	}
}

// KindOf classifies an analysis error. An explicit *recommendation.Error
// wins; otherwise the kind is derived from the retry and parse sentinels.
func KindOf(err error) recommendation.Kind {
	if err == nil {
		return recommendation.KindNone
	}
	if kind := recommendation.KindOf(err); kind != recommendation.KindNone {
		return kind
	}

	switch {
	case errors.Is(err, playlist.ErrInvalidReference):
		return recommendation.KindInvalidInput
	case errors.Is(err, retry.ErrCeilingExceeded), errors.Is(err, context.DeadlineExceeded):
		return recommendation.KindTimeoutExceeded
	}

	var rl *retry.RateLimitError
	if errors.As(err, &rl) {
		return recommendation.KindRateLimited
	}
	return recommendation.KindRemoteFailure
}
