package streamcache

import (
	"context"
	"time"

	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

// StreamCache defines the interface for caching resolved media sources.
// Resolution shells out to an external tool and stream URLs stay valid for a
// while, so resolved sources are cached with a short TTL.
// Implementations should handle serialization transparently.
type StreamCache interface {
	// Get retrieves a media source from cache by video ID.
	// Returns nil, nil if the video is not cached (cache miss).
	Get(ctx context.Context, videoID string) (*repository.MediaSource, error)

	// Set stores a media source in cache with the specified TTL.
	Set(ctx context.Context, source *repository.MediaSource, ttl time.Duration) error

	// Delete removes a media source from cache by video ID.
	// Returns nil if the video was not cached.
	Delete(ctx context.Context, videoID string) error
}
