package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/hszk-dev/framegrab/internal/domain/repository"
	"github.com/hszk-dev/framegrab/internal/infrastructure/streamcache"
)

// CachedResolverConfig holds configuration for CachedResolver.
type CachedResolverConfig struct {
	// StreamTTL is how long resolved stream URLs stay cached. Stream URLs
	// expire server-side, so this must stay comfortably below their validity
	// window.
	StreamTTL time.Duration
}

// DefaultCachedResolverConfig returns the default configuration.
func DefaultCachedResolverConfig() CachedResolverConfig {
	return CachedResolverConfig{
		StreamTTL: 30 * time.Minute,
	}
}

// cachedResolver wraps a Resolver with stream-URL caching.
// It implements the decorator pattern to avoid repeated external tool
// invocations for the same video. Cache failures degrade to a direct resolve.
type cachedResolver struct {
	delegate repository.Resolver
	cache    streamcache.StreamCache

	streamTTL time.Duration
}

// NewCachedResolver creates a caching Resolver wrapping the provided delegate.
func NewCachedResolver(delegate repository.Resolver, cache streamcache.StreamCache, cfg CachedResolverConfig) repository.Resolver {
	return &cachedResolver{
		delegate:  delegate,
		cache:     cache,
		streamTTL: cfg.StreamTTL,
	}
}

// Resolve implements the cache-aside pattern over the stream cache.
func (r *cachedResolver) Resolve(ctx context.Context, videoID string) (*repository.MediaSource, error) {
	source, err := r.cache.Get(ctx, videoID)
	if err != nil {
		// Log cache error but continue to the real resolver
		slog.Warn("stream cache get failed, resolving directly",
			"video_id", videoID,
			"error", err,
		)
	}

	if source != nil {
		return source, nil // Cache hit
	}

	source, err = r.delegate.Resolve(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, source, r.streamTTL); err != nil {
		slog.Warn("failed to cache resolved streams",
			"video_id", videoID,
			"error", err,
		)
	}

	return source, nil
}
