package streamcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

const (
	// streamCacheKeyPrefix is the prefix for stream cache keys in Redis.
	streamCacheKeyPrefix = "streams:"
)

// RedisStreamCache implements StreamCache using Redis as the backing store.
// Redis carries the TTL, so expired stream URLs age out without any sweeping
// on our side.
type RedisStreamCache struct {
	client *redis.Client
}

// Compile-time verification that RedisStreamCache implements StreamCache.
var _ StreamCache = (*RedisStreamCache)(nil)

// NewRedisStreamCache creates a new Redis-backed stream cache.
func NewRedisStreamCache(client *redis.Client) *RedisStreamCache {
	return &RedisStreamCache{
		client: client,
	}
}

// Get retrieves a media source from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisStreamCache) Get(ctx context.Context, videoID string) (*repository.MediaSource, error) {
	data, err := c.client.Get(ctx, c.buildKey(videoID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var source repository.MediaSource
	if err := json.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("deserialize media source: %w", err)
	}

	return &source, nil
}

// Set stores a media source in Redis cache with the specified TTL.
func (c *RedisStreamCache) Set(ctx context.Context, source *repository.MediaSource, ttl time.Duration) error {
	data, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("serialize media source: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(source.VideoID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a media source from Redis cache.
func (c *RedisStreamCache) Delete(ctx context.Context, videoID string) error {
	if err := c.client.Del(ctx, c.buildKey(videoID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// buildKey constructs the Redis key for a video's resolved streams.
func (c *RedisStreamCache) buildKey(videoID string) string {
	return streamCacheKeyPrefix + videoID
}
