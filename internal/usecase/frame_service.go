package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
	"github.com/hszk-dev/framegrab/internal/extractor"
	"github.com/hszk-dev/framegrab/internal/infrastructure/metrics"
)

var (
	// ErrWaitTimeout is returned to a caller whose wait on another request's
	// in-flight extraction exceeded its deadline. The extraction itself keeps
	// running for the remaining waiters.
	ErrWaitTimeout = errors.New("timed out waiting for in-flight extraction")
)

// FrameService is the single entry point for frame requests: it composes the
// cache tiers and the extraction coordinator behind one operation.
type FrameService interface {
	// GetFrame returns the cached or freshly extracted frame for req.
	// Concurrent calls for the same fingerprint share one extraction.
	GetFrame(ctx context.Context, req *model.FrameRequest) (*model.CacheEntry, error)

	// Thumbnails extracts count frames spaced evenly across the video.
	Thumbnails(ctx context.Context, videoID string, count int, quality model.Quality) ([]*model.CacheEntry, error)

	// Stats returns a snapshot of cache hit/miss counters.
	Stats() StatsSnapshot
}

// FrameServiceConfig holds configuration for FrameService.
type FrameServiceConfig struct {
	// ResolveTimeout bounds the external resolver invocation.
	ResolveTimeout time.Duration
	// ExtractTimeout bounds the external extractor invocation.
	ExtractTimeout time.Duration
	// StoreTimeout bounds background tier writes (promotion, object uploads).
	StoreTimeout time.Duration
	// WaitTimeout bounds how long a caller waits on an in-flight extraction
	// before giving up with ErrWaitTimeout. Zero means wait until the
	// caller's context expires.
	WaitTimeout time.Duration
}

// DefaultFrameServiceConfig returns the default configuration.
func DefaultFrameServiceConfig() FrameServiceConfig {
	return FrameServiceConfig{
		ResolveTimeout: 45 * time.Second,
		ExtractTimeout: 60 * time.Second,
		StoreTimeout:   30 * time.Second,
		WaitTimeout:    90 * time.Second,
	}
}

// StatsSnapshot is a point-in-time view of cache counters.
type StatsSnapshot struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	MemoryHits  int64 `json:"memory_hits"`
	FileHits    int64 `json:"file_hits"`
	ObjectHits  int64 `json:"object_hits"`
	Extractions int64 `json:"extractions"`
}

type frameService struct {
	memory repository.Tier
	file   repository.Tier
	object repository.Tier // nil when object storage is not configured

	resolver  repository.Resolver
	extractor repository.Extractor
	queue     repository.MessageQueue // nil when no retry queue is configured

	sfGroup singleflight.Group

	resolveTimeout time.Duration
	extractTimeout time.Duration
	storeTimeout   time.Duration
	waitTimeout    time.Duration

	hits        atomic.Int64
	misses      atomic.Int64
	memoryHits  atomic.Int64
	fileHits    atomic.Int64
	objectHits  atomic.Int64
	extractions atomic.Int64
}

// NewFrameService creates a FrameService over the given tiers and external
// tools. object and queue may be nil; the service degrades accordingly.
func NewFrameService(
	memory, file, object repository.Tier,
	resolver repository.Resolver,
	ext repository.Extractor,
	queue repository.MessageQueue,
	cfg FrameServiceConfig,
) FrameService {
	return &frameService{
		memory:         memory,
		file:           file,
		object:         object,
		resolver:       resolver,
		extractor:      ext,
		queue:          queue,
		resolveTimeout: cfg.ResolveTimeout,
		extractTimeout: cfg.ExtractTimeout,
		storeTimeout:   cfg.StoreTimeout,
		waitTimeout:    cfg.WaitTimeout,
	}
}

// GetFrame probes Memory, File and Object storage in order, promotes the
// first hit into the faster tiers, and on a total miss coalesces concurrent
// identical requests onto a single extraction.
func (s *frameService) GetFrame(ctx context.Context, req *model.FrameRequest) (*model.CacheEntry, error) {
	key := req.Fingerprint()

	if entry := s.probeTiers(ctx, key); entry != nil {
		s.hits.Add(1)
		return entry, nil
	}
	s.misses.Add(1)

	// The closure runs once per key regardless of how many callers pile up;
	// everyone receives the same terminal result. The driver is detached from
	// this caller's cancellation so a departing waiter cannot kill the
	// extraction other waiters depend on.
	driverCtx := context.WithoutCancel(ctx)
	ch := s.sfGroup.DoChan(key, func() (any, error) {
		return s.runExtraction(driverCtx, req)
	})

	waitCtx := ctx
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.CacheEntry), nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: %v", ErrWaitTimeout, waitCtx.Err())
	}
}

// Thumbnails resolves the video once and fetches count frames at evenly
// spaced offsets through the regular cached path, so repeated thumbnail
// requests for the same video are served from the tiers.
func (s *frameService) Thumbnails(ctx context.Context, videoID string, count int, quality model.Quality) ([]*model.CacheEntry, error) {
	if count < 1 {
		count = 1
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	source, err := s.resolver.Resolve(resolveCtx, videoID)
	if err != nil {
		return nil, fmt.Errorf("resolve video %s: %w", videoID, err)
	}
	if source.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: video has no known duration", model.ErrTimestampOutOfRange)
	}

	entries := make([]*model.CacheEntry, 0, count)
	for i := 1; i <= count; i++ {
		ts := source.DurationSeconds * i / (count + 1)
		req, err := model.NewFrameRequest(videoID, &ts, 0, 0, 0, quality)
		if err != nil {
			return nil, err
		}

		entry, err := s.GetFrame(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("thumbnail at %ds: %w", ts, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Stats returns a snapshot of cache counters.
func (s *frameService) Stats() StatsSnapshot {
	return StatsSnapshot{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		MemoryHits:  s.memoryHits.Load(),
		FileHits:    s.fileHits.Load(),
		ObjectHits:  s.objectHits.Load(),
		Extractions: s.extractions.Load(),
	}
}

// probeTiers checks the tiers fastest-first and returns the first hit,
// promoting it into the faster tiers. Tier failures are absorbed as misses.
func (s *frameService) probeTiers(ctx context.Context, key string) *model.CacheEntry {
	for i, tier := range s.tiers() {
		entry, err := tier.Lookup(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrEntryNotFound) {
				metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpLookup, metrics.TierStatusMiss, tier.Name()).Inc()
			} else {
				metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpLookup, metrics.TierStatusError, tier.Name()).Inc()
				slog.Warn("tier lookup failed, treating as miss",
					"tier", tier.Name(),
					"key", key,
					"error", err,
				)
			}
			continue
		}

		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpLookup, metrics.TierStatusHit, tier.Name()).Inc()
		s.recordTierHit(tier)
		s.promote(ctx, entry, i)
		return entry
	}
	return nil
}

// tiers returns the probe order: memory, file, object (when configured).
func (s *frameService) tiers() []repository.Tier {
	t := []repository.Tier{s.memory, s.file}
	if s.object != nil {
		t = append(t, s.object)
	}
	return t
}

func (s *frameService) recordTierHit(tier repository.Tier) {
	switch tier {
	case s.memory:
		s.memoryHits.Add(1)
	case s.file:
		s.fileHits.Add(1)
	case s.object:
		s.objectHits.Add(1)
	}
}

// promote copies an entry found at tier index foundIdx into all faster
// tiers. Memory is populated synchronously (cheap, makes the next identical
// request a memory hit); a file-tier backfill from an object hit runs in the
// background so it never blocks the response.
func (s *frameService) promote(ctx context.Context, entry *model.CacheEntry, foundIdx int) {
	if foundIdx == 0 {
		return
	}

	s.storeAdvisory(ctx, s.memory, entry)

	if foundIdx >= 2 {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
			defer cancel()
			s.storeAdvisory(bgCtx, s.file, entry)
		}()
	}
}

// runExtraction is the driver: resolve, validate, extract, then write the
// result through the tiers before any waiter is released.
func (s *frameService) runExtraction(ctx context.Context, req *model.FrameRequest) (*model.CacheEntry, error) {
	start := time.Now()
	s.extractions.Add(1)

	resolveCtx, cancelResolve := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancelResolve()

	source, err := s.resolver.Resolve(resolveCtx, req.VideoID)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeResolveError).Inc()
		return nil, fmt.Errorf("resolve video %s: %w", req.VideoID, err)
	}

	// A duration the resolver reports as zero means no frame offset can be
	// validated as in-range, so every timestamp is rejected.
	if req.TimestampSeconds >= source.DurationSeconds {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeOutOfRange).Inc()
		return nil, fmt.Errorf("%w: timestamp %ds, duration %ds",
			model.ErrTimestampOutOfRange, req.TimestampSeconds, source.DurationSeconds)
	}

	stream, ok := source.StreamFor(req.Quality)
	if !ok {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeResolveError).Inc()
		return nil, fmt.Errorf("%w: %s for video %s", repository.ErrQualityUnavailable, req.Quality, req.VideoID)
	}

	extractCtx, cancelExtract := context.WithTimeout(ctx, s.extractTimeout)
	defer cancelExtract()

	image, err := s.extractor.Extract(extractCtx, stream.URL, req.TimestampSeconds, req.Quality)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeExtractError).Inc()
		return nil, fmt.Errorf("extract frame: %w", err)
	}

	entry := model.NewCacheEntry(req, image, extractor.ContentType)
	s.writeThrough(ctx, entry)

	metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.ExtractionDurationSeconds.Observe(time.Since(start).Seconds())

	return entry, nil
}

// writeThrough persists a fresh extraction: file tier synchronously (the
// durability contract before waiters are released), memory opportunistically,
// object storage in the background with queue-based retry on failure.
// Store failures never fail the request; the extracted bytes are already in
// hand.
func (s *frameService) writeThrough(ctx context.Context, entry *model.CacheEntry) {
	if err := s.file.Store(ctx, entry.Key, entry); err != nil {
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusError, s.file.Name()).Inc()
		slog.Error("file tier store failed",
			"key", entry.Key,
			"error", err,
		)
	} else {
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusSuccess, s.file.Name()).Inc()
	}

	s.storeAdvisory(ctx, s.memory, entry)

	if s.object != nil {
		go s.replicateToObject(context.WithoutCancel(ctx), entry)
	}
}

// replicateToObject uploads an entry to object storage best-effort.
// On failure the entry is handed to the retry queue when one is configured;
// it remains readable from the file tier either way.
func (s *frameService) replicateToObject(ctx context.Context, entry *model.CacheEntry) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.object.Store(storeCtx, entry.Key, entry)
	if err == nil {
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusSuccess, s.object.Name()).Inc()
		return
	}

	metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusError, s.object.Name()).Inc()
	slog.Warn("object tier store failed",
		"key", entry.Key,
		"error", err,
	)

	if s.queue == nil {
		return
	}
	if err := s.queue.PublishReplicateTask(storeCtx, repository.ReplicateTask{Key: entry.Key}); err != nil {
		slog.Error("failed to enqueue replication task",
			"key", entry.Key,
			"error", err,
		)
	}
}

// storeAdvisory stores into a tier where failure is acceptable: oversized
// entries and unavailable tiers are logged and skipped.
func (s *frameService) storeAdvisory(ctx context.Context, tier repository.Tier, entry *model.CacheEntry) {
	err := tier.Store(ctx, entry.Key, entry)
	switch {
	case err == nil:
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusSuccess, tier.Name()).Inc()
	case errors.Is(err, repository.ErrEntryTooLarge):
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusSkipped, tier.Name()).Inc()
	default:
		metrics.TierOperationsTotal.WithLabelValues(metrics.TierOpStore, metrics.TierStatusError, tier.Name()).Inc()
		slog.Warn("tier store failed",
			"tier", tier.Name(),
			"key", entry.Key,
			"error", err,
		)
	}
}
