package repository

import (
	"context"

	"github.com/hszk-dev/framegrab/internal/domain/model"
)

// Tier is one storage backend in the cache hierarchy. Tiers are ordered by
// ascending latency: memory < file < object storage. All implementations
// must be safe for concurrent use.
type Tier interface {
	// Lookup retrieves the entry for key.
	// Returns ErrEntryNotFound on a miss. Implementations backed by remote
	// stores may return ErrTierUnavailable; callers are expected to treat
	// that as a miss.
	Lookup(ctx context.Context, key string) (*model.CacheEntry, error)

	// Store persists the entry under key. Image and metadata are published
	// together: a concurrent Lookup observes either the whole entry or a miss,
	// never a partial write.
	Store(ctx context.Context, key string, entry *model.CacheEntry) error

	// Name identifies the tier in logs and metrics ("memory", "file", "object").
	Name() string
}
