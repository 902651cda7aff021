package spotify

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/osa030/tunetaste/internal/domain/playlist"
	"github.com/osa030/tunetaste/internal/domain/track"
	"github.com/osa030/tunetaste/internal/infra/retry"
)

// FetchTracks retrieves every track of a playlist together with its audio
// features. The whole fetch is retried from the start on transient failures
// until the retry ceiling is reached. Tracks keep a nil Features when Spotify
// refuses to serve audio features. The fetch as a whole never runs longer
// than the retry ceiling plus one request timeout.
func (c *Client) FetchTracks(ctx context.Context, ref playlist.Reference) ([]track.Track, error) {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	var tracks []track.Track
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		items, err := c.fetchItems(ctx, ref)
		if err != nil {
			return classify(errors.Wrap(err, "failed to get playlist items"))
		}

		p := &playlist.Playlist{Ref: ref, Tracks: items}
		if err := c.fetchFeatures(ctx, p); err != nil {
			if !featuresUnavailable(err) {
				return classify(errors.Wrap(err, "failed to get audio features"))
			}
			zlog.Warn().Msgf("audio features unavailable for playlist %s, continuing without them: %v", ref, err)
		}

		tracks = items
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch playlist %s", ref)
	}

	zlog.Debug().Msgf("fetched %d tracks from playlist %s", len(tracks), ref)
	return tracks, nil
}

// fetchItems pages through the playlist until there is no next page.
func (c *Client) fetchItems(ctx context.Context, ref playlist.Reference) ([]track.Track, error) {
	tracks := []track.Track{}
	offset := 0

	for {
		opts := []spotify.RequestOption{
			spotify.Limit(pageLimit),
			spotify.Offset(offset),
		}
		if c.market != "" {
			opts = append(opts, spotify.Market(c.market))
		}

		page, err := c.client.GetPlaylistItems(ctx, spotify.ID(ref.ID()), opts...)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes and local files)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, c.convertTrack(item.Track.Track))
			}
		}

		if page.Next == "" || len(page.Items) == 0 {
			return tracks, nil
		}
		offset += len(page.Items)
	}
}

// fetchFeatures fills in Features for the playlist's tracks, batchSize IDs per request.
func (c *Client) fetchFeatures(ctx context.Context, p *playlist.Playlist) error {
	trackIDs := p.TrackIDs()
	index := make(map[string][]int, len(trackIDs))
	ids := make([]spotify.ID, 0, len(trackIDs))
	for i, id := range trackIDs {
		if _, seen := index[id]; !seen {
			ids = append(ids, spotify.ID(id))
		}
		index[id] = append(index[id], i)
	}

	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))

		features, err := c.client.GetAudioFeatures(ctx, ids[start:end]...)
		if err != nil {
			return err
		}
		for _, f := range features {
			if f == nil {
				continue
			}
			for _, i := range index[string(f.ID)] {
				p.Tracks[i].Features = convertFeatures(f)
			}
		}
	}
	return nil
}

func featuresUnavailable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusForbidden || se.StatusCode == http.StatusNotFound
}

// classify marks errors that no amount of retrying will fix as permanent.
func classify(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return retry.Permanent(err)
		}
		return err
	}

	// Token endpoint rejected the credentials.
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		code := re.Response.StatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
	}
	return err
}
