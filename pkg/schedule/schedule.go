// Package schedule runs short, keyed, cancellable deferred tasks.
//
// The store uses it to sequence presentation transitions such as clearing
// the auto-formatting flag. Scheduling a key that is already pending
// replaces the pending task, so a burst of triggers collapses into one
// completion instead of racing.
//
// [Timer] uses real time. [Manual] advances a virtual clock and is meant for
// tests.
package schedule

import (
	"slices"
	"sync"
	"time"
)

// Scheduler runs fn once after d unless the key is cancelled or
// rescheduled first.
type Scheduler interface {
	After(key string, d time.Duration, fn func())
	Cancel(key string)
	Stop()
}

// =============================================================================
// Timer
// =============================================================================

// Timer schedules tasks on time.AfterFunc.
type Timer struct {
	mu      sync.Mutex
	pending map[string]*entry
	gen     uint64
	stopped bool
}

type entry struct {
	gen   uint64
	timer *time.Timer
}

// NewTimer returns a ready Timer.
func NewTimer() *Timer {
	return &Timer{pending: make(map[string]*entry)}
}

// After schedules fn under key, replacing any pending task for that key.
func (t *Timer) After(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if old, ok := t.pending[key]; ok {
		old.timer.Stop()
	}
	t.gen++
	gen := t.gen
	e := &entry{gen: gen}
	e.timer = time.AfterFunc(d, func() {
		// A replaced task can fire after Stop raced with it; the generation
		// check drops it.
		t.mu.Lock()
		cur, ok := t.pending[key]
		if !ok || cur.gen != gen {
			t.mu.Unlock()
			return
		}
		delete(t.pending, key)
		t.mu.Unlock()
		fn()
	})
	t.pending[key] = e
}

// Cancel drops the pending task for key, if any.
func (t *Timer) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.pending[key]; ok {
		e.timer.Stop()
		delete(t.pending, key)
	}
}

// Stop cancels every pending task. Later calls to After are ignored.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.pending {
		e.timer.Stop()
		delete(t.pending, k)
	}
	t.stopped = true
}

// =============================================================================
// Manual
// =============================================================================

// Manual is a deterministic Scheduler driven by Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	pending map[string]manualTask
	seq     uint64
}

type manualTask struct {
	at  time.Duration
	seq uint64
	fn  func()
}

// NewManual returns a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{pending: make(map[string]manualTask)}
}

func (m *Manual) After(key string, d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.pending[key] = manualTask{at: m.now + d, seq: m.seq, fn: fn}
}

func (m *Manual) Cancel(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.pending)
}

// Advance moves the clock forward by d and runs every task that has come
// due, in due order. Tasks scheduled by those tasks run too if they fall
// within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		key, task, ok := m.next(target)
		if !ok {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.pending, key)
		m.now = task.at
		m.mu.Unlock()
		task.fn()
	}
}

// Flush runs every pending task regardless of its delay.
func (m *Manual) Flush() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		var latest time.Duration
		for _, t := range m.pending {
			latest = max(latest, t.at)
		}
		m.mu.Unlock()
		m.Advance(latest - m.Now())
	}
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the keys of scheduled tasks, sorted.
func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// next finds the earliest task due at or before target. Caller holds mu.
func (m *Manual) next(target time.Duration) (string, manualTask, bool) {
	var (
		bestKey string
		best    manualTask
		found   bool
	)
	for k, t := range m.pending {
		if t.at > target {
			continue
		}
		if !found || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			bestKey, best, found = k, t, true
		}
	}
	return bestKey, best, found
}

var (
	_ Scheduler = (*Timer)(nil)
	_ Scheduler = (*Manual)(nil)
)
