// Package main obtains a Spotify refresh token for reading private and
// collaborative playlists. Public playlists work with client credentials
// alone, so the server runs without it.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/tunetaste/internal/domain/playlist"
	"github.com/osa030/tunetaste/internal/infra/logger"
	"github.com/osa030/tunetaste/internal/infra/retry"
	"github.com/osa030/tunetaste/internal/infra/spotify"
)

var (
	app          = kingpin.New("tunetaste-auth", "Obtain a Spotify refresh token for reading private playlists")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	verifyURL    = app.Flag("playlist", "Playlist to read with the new token").String()
	envFile      = app.Flag("env-file", "Write SPOTIFY_REFRESH_TOKEN into this .env file").String()
	timeout      = app.Flag("timeout", "How long to wait for the browser callback").Default("5m").Duration()
)

type callbackResult struct {
	token *oauth2.Token
	err   error
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zlog.Error().Msgf("authorization failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(fmt.Sprintf("http://127.0.0.1:%d/callback", *port)),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	)

	token, err := awaitToken(ctx, auth)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return errors.New("spotify returned no refresh token")
	}
	zlog.Info().Msg("authorization complete")

	if *verifyURL != "" {
		if err := verify(ctx, token.RefreshToken, *verifyURL); err != nil {
			return err
		}
	}

	fmt.Printf("%s=%s\n", refreshTokenKey, token.RefreshToken)
	if *envFile != "" {
		if err := saveRefreshToken(*envFile, token.RefreshToken); err != nil {
			return err
		}
		zlog.Info().Msgf("refresh token written to %s", *envFile)
	}
	return nil
}

// awaitToken serves the OAuth callback until the browser returns or the
// timeout passes.
func awaitToken(ctx context.Context, auth *spotifyauth.Authenticator) (*oauth2.Token, error) {
	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if st := r.FormValue("state"); st != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			zlog.Warn().Msgf("ignoring callback with unexpected state %q", st)
			return
		}
		token, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Failed to get token", http.StatusForbidden)
			sendResult(results, callbackResult{err: errors.Wrap(err, "token exchange failed")})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, successPage)
		sendResult(results, callbackResult{token: token})
	})

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on port %d", *port)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendResult(results, callbackResult{err: errors.Wrap(err, "callback server stopped")})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Msgf("failed to shut down callback server: %v", err)
		}
	}()

	fmt.Fprintln(os.Stderr, "Open this URL to authorize tunetaste:")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, auth.AuthURL(state))
	fmt.Fprintln(os.Stderr)

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	select {
	case res := <-results:
		return res.token, res.err
	case <-waitCtx.Done():
		return nil, errors.Wrap(waitCtx.Err(), "no authorization received")
	}
}

// sendResult keeps the first result; later callbacks are dropped.
func sendResult(ch chan<- callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}

// verify reads the playlist through the same client the server uses.
func verify(ctx context.Context, refreshToken, playlistURL string) error {
	ref, err := playlist.ParseReference(playlistURL)
	if err != nil {
		return err
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:       *clientID,
		ClientSecret:   *clientSecret,
		RefreshToken:   refreshToken,
		RequestTimeout: 15 * time.Second,
		Retry: retry.Policy{
			MaxElapsed:     30 * time.Second,
			Delay:          time.Second,
			RateLimitDelay: 5 * time.Second,
		},
	})
	if err != nil {
		return err
	}

	tracks, err := client.FetchTracks(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, "failed to read playlist %s with the new token", ref.ID())
	}
	zlog.Info().Msgf("read %d tracks from %s", len(tracks), ref.URL())
	return nil
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>tunetaste - Authorization Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 80px;">
    <h1>Authorization Complete</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`
