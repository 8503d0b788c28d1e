// Package observability lets the rest of taskmap report what it is doing
// without depending on a metrics or tracing backend.
//
// Four areas emit events: the store (mutations, undo/redo), layout engines,
// the layout cache, and snapshot storage. Each has a hook interface with a
// no-op default. A program installs its own implementations once at startup:
//
//	observability.SetStorageHooks(myStorageMetrics)
//
// or routes all four to a structured logger:
//
//	observability.Install(observability.NewLogHooks(logger))
//
// Emitters look the hooks up on every call:
//
//	observability.Layout().OnLayoutStart(ctx, "layered", len(nodes))
package observability

import (
	"context"
	"sync"
	"time"
)

// StoreHooks receives events from the graph store. Store operations carry
// no context. Implementations must not call back into the store.
type StoreHooks interface {
	OnMutation(op string, nodeCount, edgeCount int)
	OnHistory(op string, undoDepth, redoDepth int)
}

// LayoutHooks receives events from layout engines.
type LayoutHooks interface {
	OnLayoutStart(ctx context.Context, engine string, nodeCount int)
	OnLayoutComplete(ctx context.Context, engine string, duration time.Duration, err error)
}

// CacheHooks receives events from the layout caches. keyType is the key
// prefix, e.g. "layered".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// StorageHooks receives events from snapshot backends. size is zero when err
// is non-nil.
type StorageHooks interface {
	OnRead(ctx context.Context, backend, name string, size int, duration time.Duration, err error)
	OnWrite(ctx context.Context, backend, name string, size int, duration time.Duration, err error)
}

type (
	NoopStoreHooks   struct{}
	NoopLayoutHooks  struct{}
	NoopCacheHooks   struct{}
	NoopStorageHooks struct{}
)

func (NoopStoreHooks) OnMutation(string, int, int) {}
func (NoopStoreHooks) OnHistory(string, int, int)  {}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int)                     {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, string, time.Duration, error) {}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

func (NoopStorageHooks) OnRead(context.Context, string, string, int, time.Duration, error)  {}
func (NoopStorageHooks) OnWrite(context.Context, string, string, int, time.Duration, error) {}

// slot holds one registered hook implementation.
type slot[T any] struct {
	mu   sync.RWMutex
	h    T
	noop T
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

func (s *slot[T]) set(h T) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.set(s.noop)
}

var (
	storeSlot   = &slot[StoreHooks]{h: NoopStoreHooks{}, noop: NoopStoreHooks{}}
	layoutSlot  = &slot[LayoutHooks]{h: NoopLayoutHooks{}, noop: NoopLayoutHooks{}}
	cacheSlot   = &slot[CacheHooks]{h: NoopCacheHooks{}, noop: NoopCacheHooks{}}
	storageSlot = &slot[StorageHooks]{h: NoopStorageHooks{}, noop: NoopStorageHooks{}}
)

// SetStoreHooks registers h for store events. nil is ignored.
func SetStoreHooks(h StoreHooks) {
	if h != nil {
		storeSlot.set(h)
	}
}

// SetLayoutHooks registers h for layout events. nil is ignored.
func SetLayoutHooks(h LayoutHooks) {
	if h != nil {
		layoutSlot.set(h)
	}
}

// SetCacheHooks registers h for cache events. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetStorageHooks registers h for storage events. nil is ignored.
func SetStorageHooks(h StorageHooks) {
	if h != nil {
		storageSlot.set(h)
	}
}

// Install registers h for every hook interface it implements.
func Install(h any) {
	if v, ok := h.(StoreHooks); ok {
		SetStoreHooks(v)
	}
	if v, ok := h.(LayoutHooks); ok {
		SetLayoutHooks(v)
	}
	if v, ok := h.(CacheHooks); ok {
		SetCacheHooks(v)
	}
	if v, ok := h.(StorageHooks); ok {
		SetStorageHooks(v)
	}
}

func Store() StoreHooks     { return storeSlot.get() }
func Layout() LayoutHooks   { return layoutSlot.get() }
func Cache() CacheHooks     { return cacheSlot.get() }
func Storage() StorageHooks { return storageSlot.get() }

// Reset restores the no-op hooks.
func Reset() {
	storeSlot.reset()
	layoutSlot.reset()
	cacheSlot.reset()
	storageSlot.reset()
}
