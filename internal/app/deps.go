package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vidhub/backend/internal/auth"
	"github.com/vidhub/backend/internal/config"
	"github.com/vidhub/backend/internal/db"
	"github.com/vidhub/backend/internal/handlers"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/media"
	"github.com/vidhub/backend/internal/metrics"
	"github.com/vidhub/backend/internal/relations"
	"github.com/vidhub/backend/internal/repositories"
	"github.com/vidhub/backend/internal/retry"
	"github.com/vidhub/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, recorder *metrics.Recorder) (handlers.Dependencies, error) {
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		return handlers.Dependencies{}, err
	}

	resolver, err := newMediaResolver(ctx, cfg.Media)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	edges := repositories.NewPostgresEdgeRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	manager := auth.NewManager(
		users,
		repositories.NewPostgresSessionStore(pool),
		issuer,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		auth.WithObserver(recorder),
	)

	builder := views.NewBuilder(edges, users, videos, videos,
		views.WithResolver(resolver),
		views.WithRetryPolicy(retry.Policy{Attempts: cfg.Retry.Attempts, Backoff: cfg.Retry.Backoff}),
	)

	return handlers.Dependencies{
		Sessions:  manager,
		Relations: relations.NewEngine(edges, recorder),
		Views:     builder,
		WatchLog:  videos,
		Database:  pool,
		Metrics:   recorder.Handler(),
	}, nil
}

// newMediaResolver presigns stored media keys when a bucket is configured and
// passes references through otherwise.
func newMediaResolver(ctx context.Context, cfg config.MediaConfig) (media.Resolver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		logging.FromContext(ctx).Info("media bucket not configured, serving stored references as-is")
		return media.Passthrough{}, nil
	}

	s3Resolver, err := media.NewS3Resolver(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure media resolver: %w", err)
	}
	return media.NewCachingResolver(s3Resolver, cfg.CacheTTL), nil
}
