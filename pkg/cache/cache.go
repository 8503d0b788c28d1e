// Package cache stores computed artifacts with optional expiry.
//
// taskmap caches layered (Graphviz) layouts: running Graphviz is the only
// expensive layout step, and the result depends only on the graph structure,
// labels and layout options. Keys are content hashes, so an edited graph
// misses naturally.
//
// Implementations:
//   - [FileCache]: one JSON file per entry under a directory (CLI use)
//   - [MemoryCache]: bounded in-process map (long-running servers)
//   - [Tiered]: a fast cache in front of a slower one
//   - [NullCache]: never stores anything (--no-cache, tests)
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// expiry turns a ttl into an absolute deadline; zero means never.
func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

// =============================================================================
// NullCache
// =============================================================================

// NullCache misses on every read and drops every write.
type NullCache struct{}

func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

// =============================================================================
// Tiered
// =============================================================================

// Tiered reads from Front first and falls back to Back, copying back hits
// forward. Writes and deletes go to both.
type Tiered struct {
	Front, Back Cache

	// FrontTTL bounds how long promoted entries stay in Front.
	FrontTTL time.Duration
}

// NewTiered layers front over back.
func NewTiered(front, back Cache, frontTTL time.Duration) *Tiered {
	return &Tiered{Front: front, Back: back, FrontTTL: frontTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := t.Front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := t.Back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.Front.Set(ctx, key, data, t.FrontTTL)
	return data, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	front := ttl
	if t.FrontTTL > 0 && (front <= 0 || t.FrontTTL < front) {
		front = t.FrontTTL
	}
	if err := t.Front.Set(ctx, key, data, front); err != nil {
		return err
	}
	return t.Back.Set(ctx, key, data, ttl)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.Front.Delete(ctx, key); err != nil {
		return err
	}
	return t.Back.Delete(ctx, key)
}

// Close closes both tiers and reports the first error.
func (t *Tiered) Close() error {
	errFront := t.Front.Close()
	errBack := t.Back.Close()
	if errFront != nil {
		return errFront
	}
	return errBack
}

var (
	_ Cache = NullCache{}
	_ Cache = (*Tiered)(nil)
)
