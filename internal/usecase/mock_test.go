package usecase

import (
	"context"
	"sync/atomic"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

// mockTier provides a configurable mock for repository.Tier.
type mockTier struct {
	name     string
	lookupFn func(ctx context.Context, key string) (*model.CacheEntry, error)
	storeFn  func(ctx context.Context, key string, entry *model.CacheEntry) error

	lookupCalls atomic.Int32
	storeCalls  atomic.Int32
}

func (m *mockTier) Lookup(ctx context.Context, key string) (*model.CacheEntry, error) {
	m.lookupCalls.Add(1)
	if m.lookupFn != nil {
		return m.lookupFn(ctx, key)
	}
	return nil, repository.ErrEntryNotFound
}

func (m *mockTier) Store(ctx context.Context, key string, entry *model.CacheEntry) error {
	m.storeCalls.Add(1)
	if m.storeFn != nil {
		return m.storeFn(ctx, key, entry)
	}
	return nil
}

func (m *mockTier) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

// mockResolver provides a configurable mock for repository.Resolver.
type mockResolver struct {
	resolveFn    func(ctx context.Context, videoID string) (*repository.MediaSource, error)
	resolveCalls atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, videoID string) (*repository.MediaSource, error) {
	m.resolveCalls.Add(1)
	if m.resolveFn != nil {
		return m.resolveFn(ctx, videoID)
	}
	return &repository.MediaSource{
		VideoID:         videoID,
		DurationSeconds: 600,
		Streams: map[model.Quality]repository.StreamInfo{
			model.QualityUltra:  {URL: "https://cdn/1080.mp4", Height: 1080},
			model.QualityHigh:   {URL: "https://cdn/720.mp4", Height: 720},
			model.QualityMedium: {URL: "https://cdn/480.mp4", Height: 480},
			model.QualityLow:    {URL: "https://cdn/360.mp4", Height: 360},
		},
	}, nil
}

// mockExtractor provides a configurable mock for repository.Extractor.
type mockExtractor struct {
	extractFn    func(ctx context.Context, streamURL string, timestampSeconds int, quality model.Quality) ([]byte, error)
	extractCalls atomic.Int32
}

func (m *mockExtractor) Extract(ctx context.Context, streamURL string, timestampSeconds int, quality model.Quality) ([]byte, error) {
	m.extractCalls.Add(1)
	if m.extractFn != nil {
		return m.extractFn(ctx, streamURL, timestampSeconds, quality)
	}
	return []byte("fake-png-bytes"), nil
}

// mockMessageQueue provides a configurable mock for repository.MessageQueue.
type mockMessageQueue struct {
	publishFn    func(ctx context.Context, task repository.ReplicateTask) error
	publishCalls atomic.Int32
	published    chan repository.ReplicateTask
}

func (m *mockMessageQueue) PublishReplicateTask(ctx context.Context, task repository.ReplicateTask) error {
	m.publishCalls.Add(1)
	if m.published != nil {
		m.published <- task
	}
	if m.publishFn != nil {
		return m.publishFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeReplicateTasks(ctx context.Context, handler func(task repository.ReplicateTask) error) error {
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}
