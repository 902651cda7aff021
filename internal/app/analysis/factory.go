package analysis

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunetaste/internal/app/generator"
	"github.com/osa030/tunetaste/internal/infra/config"
	"github.com/osa030/tunetaste/internal/infra/spotify"
)

// NewFromConfig wires an Analyzer to Spotify and the configured generators.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Analyzer, error) {
	catalog, err := spotify.New(ctx, spotify.Config{
		ClientID:          cfg.Spotify.ClientID,
		ClientSecret:      cfg.Spotify.ClientSecret,
		RefreshToken:      cfg.Spotify.RefreshToken,
		Market:            cfg.Spotify.Market,
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		Burst:             cfg.Spotify.Burst,
		RequestTimeout:    cfg.Spotify.RequestTimeout,
		FeatureBatchSize:  cfg.Spotify.FeatureBatchSize,
		Retry:             cfg.Retry.Catalog.Policy(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create spotify client")
	}

	chain, err := generator.NewChainFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create generator chain")
	}

	return New(catalog, chain, cfg), nil
}
