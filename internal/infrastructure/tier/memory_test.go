package tier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

func testEntry(t *testing.T, videoID string, ts int, imageSize int) *model.CacheEntry {
	t.Helper()
	req, err := model.NewFrameRequest(videoID, &ts, 0, 0, 0, model.QualityMedium)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return model.NewCacheEntry(req, bytes.Repeat([]byte{0xAB}, imageSize), "image/png")
}

func TestMemory_StoreAndLookup(t *testing.T) {
	m, err := NewMemory(1 << 20)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}

	entry := testEntry(t, "dQw4w9WgXcQ", 10, 256)

	if err := m.Store(context.Background(), entry.Key, entry); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := m.Lookup(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !bytes.Equal(got.Image, entry.Image) {
		t.Error("Lookup() returned different image bytes")
	}
	if got.Metadata.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q, want dQw4w9WgXcQ", got.Metadata.VideoID)
	}
}

func TestMemory_LookupMiss(t *testing.T) {
	m, _ := NewMemory(1 << 20)

	_, err := m.Lookup(context.Background(), "missing_0_medium")
	if !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("Lookup() error = %v, want ErrEntryNotFound", err)
	}
}

func TestMemory_EvictsOldestWhenOverBudget(t *testing.T) {
	// Budget fits roughly two entries of 1000 bytes each.
	m, _ := NewMemory(2100)

	first := testEntry(t, "videoaaaaaa", 1, 1000)
	second := testEntry(t, "videobbbbbb", 2, 1000)
	third := testEntry(t, "videocccccc", 3, 1000)

	for _, e := range []*model.CacheEntry{first, second, third} {
		if err := m.Store(context.Background(), e.Key, e); err != nil {
			t.Fatalf("Store(%s) error = %v", e.Key, err)
		}
	}

	if _, err := m.Lookup(context.Background(), first.Key); !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("oldest entry should have been evicted, got err = %v", err)
	}
	if _, err := m.Lookup(context.Background(), third.Key); err != nil {
		t.Errorf("newest entry should survive, got err = %v", err)
	}
	if m.SizeBytes() > 2100 {
		t.Errorf("SizeBytes() = %d, exceeds budget", m.SizeBytes())
	}
}

func TestMemory_LookupRefreshesRecency(t *testing.T) {
	m, _ := NewMemory(2100)

	first := testEntry(t, "videoaaaaaa", 1, 1000)
	second := testEntry(t, "videobbbbbb", 2, 1000)

	_ = m.Store(context.Background(), first.Key, first)
	_ = m.Store(context.Background(), second.Key, second)

	// Touch first so second becomes the eviction candidate.
	if _, err := m.Lookup(context.Background(), first.Key); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	third := testEntry(t, "videocccccc", 3, 1000)
	_ = m.Store(context.Background(), third.Key, third)

	if _, err := m.Lookup(context.Background(), first.Key); err != nil {
		t.Errorf("recently used entry should survive, got err = %v", err)
	}
	if _, err := m.Lookup(context.Background(), second.Key); !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("least recently used entry should be evicted, got err = %v", err)
	}
}

func TestMemory_RejectsOversizedEntry(t *testing.T) {
	m, _ := NewMemory(500)

	small := testEntry(t, "videoaaaaaa", 1, 100)
	_ = m.Store(context.Background(), small.Key, small)

	big := testEntry(t, "videobbbbbb", 2, 1000)
	err := m.Store(context.Background(), big.Key, big)
	if !errors.Is(err, repository.ErrEntryTooLarge) {
		t.Fatalf("Store() error = %v, want ErrEntryTooLarge", err)
	}

	// The oversized entry must not have evicted anything.
	if _, err := m.Lookup(context.Background(), small.Key); err != nil {
		t.Errorf("existing entry should survive a rejected store, got err = %v", err)
	}
}

func TestMemory_OverwriteAccounting(t *testing.T) {
	m, _ := NewMemory(1 << 20)

	entry := testEntry(t, "dQw4w9WgXcQ", 10, 1000)
	_ = m.Store(context.Background(), entry.Key, entry)
	sizeAfterFirst := m.SizeBytes()

	// Storing the same key again must not double-count.
	_ = m.Store(context.Background(), entry.Key, entry)
	if got := m.SizeBytes(); got != sizeAfterFirst {
		t.Errorf("SizeBytes() after overwrite = %d, want %d", got, sizeAfterFirst)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m, _ := NewMemory(1 << 20)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				entry := testEntry(t, fmt.Sprintf("video%06d_", n), j, 64)
				_ = m.Store(context.Background(), entry.Key, entry)
				_, _ = m.Lookup(context.Background(), entry.Key)
			}
		}(i)
	}
	wg.Wait()

	if m.SizeBytes() < 0 {
		t.Errorf("SizeBytes() = %d, accounting went negative", m.SizeBytes())
	}
}
