package tier

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

const memoryTierName = "memory"

// defaultMaxEntries bounds the LRU entry count independently of the byte
// budget; the byte budget is the primary limit.
const defaultMaxEntries = 4096

// Memory is the fastest, process-local cache tier. It holds recently used
// entries in a size-aware LRU bounded by a byte budget. Entries are immutable
// once stored, so concurrent readers never observe partial state.
type Memory struct {
	cache       *lru.Cache[string, *model.CacheEntry]
	budgetBytes int64

	mu          sync.Mutex // guards the store+evict sequence and currentSize
	currentSize int64
}

// Compile-time verification that Memory implements repository.Tier.
var _ repository.Tier = (*Memory)(nil)

// NewMemory creates a memory tier with the given byte budget.
func NewMemory(budgetBytes int64) (*Memory, error) {
	m := &Memory{budgetBytes: budgetBytes}

	cache, err := lru.NewWithEvict(defaultMaxEntries, func(key string, entry *model.CacheEntry) {
		m.currentSize -= entry.Size()
	})
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}

	m.cache = cache
	return m, nil
}

// Lookup returns the entry for key and refreshes its recency.
func (m *Memory) Lookup(_ context.Context, key string) (*model.CacheEntry, error) {
	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	return entry, nil
}

// Store inserts the entry, evicting least-recently-used entries until the
// byte budget is respected. An entry larger than the entire budget is
// rejected with ErrEntryTooLarge and nothing is evicted for it.
func (m *Memory) Store(_ context.Context, key string, entry *model.CacheEntry) error {
	size := entry.Size()
	if size > m.budgetBytes {
		return fmt.Errorf("%w: entry %d bytes, budget %d", repository.ErrEntryTooLarge, size, m.budgetBytes)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.cache.Peek(key); ok {
		// Replacing an existing entry; the eviction callback does not fire
		// for overwrites, so account for the old size here.
		m.currentSize -= old.Size()
	}

	m.cache.Add(key, entry)
	m.currentSize += size

	for m.currentSize > m.budgetBytes {
		if _, _, ok := m.cache.RemoveOldest(); !ok {
			break
		}
	}

	return nil
}

// Name implements repository.Tier.
func (m *Memory) Name() string {
	return memoryTierName
}

// Len returns the current number of cached entries.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// SizeBytes returns the current accounted size of cached entries.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentSize
}
