package cache

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/taskmap/pkg/observability"
)

// DefaultMemoryEntries bounds a MemoryCache created with a non-positive size.
const DefaultMemoryEntries = 128

type memoryEntry struct {
	data     []byte
	deadline time.Time
	used     uint64
}

// MemoryCache keeps entries in process. When full, the least recently used
// entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	max     int
	clock   uint64
	entries map[string]*memoryEntry
}

// NewMemoryCache creates a cache holding at most maxEntries values.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryCache{max: maxEntries, entries: make(map[string]*memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && expired(e.deadline) {
		delete(c.entries, key)
		ok = false
	}
	if ok {
		c.clock++
		e.used = c.clock
	}
	c.mu.Unlock()

	if !ok {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return nil, false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType(key))
	return append([]byte(nil), e.data...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.clock++
	c.entries[key] = &memoryEntry{
		data:     append([]byte(nil), data...),
		deadline: expiry(ttl),
		used:     c.clock,
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

func (c *MemoryCache) evictOldest() {
	var oldest string
	var used uint64
	for k, e := range c.entries {
		if oldest == "" || e.used < used {
			oldest, used = k, e.used
		}
	}
	delete(c.entries, oldest)
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
