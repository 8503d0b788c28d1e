package store

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
	"github.com/matzehuels/taskmap/pkg/observability"
	"github.com/matzehuels/taskmap/pkg/schedule"
)

// Transition timings.
const (
	DefaultAutoFormatDuration = 400 * time.Millisecond
	DefaultEdgeRefreshDelay   = 50 * time.Millisecond
)

// Scheduler keys.
const (
	keyAutoFormat  = "auto-format"
	keyLoadLayout  = "load-layout"
	keyEdgeRefresh = "edge-refresh:"
)

// =============================================================================
// Events
// =============================================================================

// EventKind identifies what a subscriber is being told.
type EventKind int

const (
	// EventChanged follows every committed change to the snapshot or to
	// the transient selection/editing flags.
	EventChanged EventKind = iota

	// EventAutoFormat reports the auto-formatting window opening or closing.
	EventAutoFormat

	// EventEdgeRefresh asks the presentation layer to recompute the edge
	// paths of a freshly inserted node.
	EventEdgeRefresh
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventAutoFormat:
		return "auto-format"
	case EventEdgeRefresh:
		return "edge-refresh"
	}
	return "unknown"
}

// Event is delivered to subscribers.
type Event struct {
	Kind EventKind

	// Op names the operation behind an EventChanged.
	Op string

	// AutoFormatting is the new flag value for EventAutoFormat.
	AutoFormatting bool

	// NodeID is the node whose edges need refreshing for EventEdgeRefresh.
	NodeID string
}

// =============================================================================
// Options
// =============================================================================

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScheduler replaces the real-time scheduler.
func WithScheduler(sc schedule.Scheduler) Option {
	return func(s *Store) {
		if sc != nil {
			s.sched = sc
		}
	}
}

// WithHistoryDepth bounds the undo and redo stacks.
func WithHistoryDepth(n int) Option {
	return func(s *Store) { s.hist = newHistory(n) }
}

// WithSpacing sets the tree layout spacing. Non-positive values keep the
// defaults.
func WithSpacing(level, node float64) Option {
	return func(s *Store) {
		s.spacing.LevelSpacing = level
		s.spacing.NodeSpacing = node
	}
}

// WithTimings sets the auto-formatting window and the edge refresh delay.
func WithTimings(autoFormat, edgeRefresh time.Duration) Option {
	return func(s *Store) {
		if autoFormat > 0 {
			s.autoFormatFor = autoFormat
		}
		if edgeRefresh > 0 {
			s.edgeRefreshAfter = edgeRefresh
		}
	}
}

// WithBatchTitle sets the title of the initial empty snapshot.
func WithBatchTitle(title string) Option {
	return func(s *Store) { s.snap.BatchTitle = title }
}

// WithIDGenerator replaces uuid node ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// =============================================================================
// Store
// =============================================================================

// Store owns a task map snapshot and serializes every change to it.
type Store struct {
	mu     sync.Mutex
	snap   graph.Snapshot
	idx    *graph.Index
	hist   *history
	drag   *dragSession
	events []Event

	autoFormatting bool
	loadPending    bool

	sched            schedule.Scheduler
	logger           *log.Logger
	spacing          layout.Options
	autoFormatFor    time.Duration
	edgeRefreshAfter time.Duration
	newID            func() string

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New creates a Store holding an empty snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		snap:             graph.NewSnapshot(""),
		idx:              graph.NewIndex(nil),
		hist:             newHistory(DefaultHistoryDepth),
		sched:            schedule.NewTimer(),
		logger:           log.Default(),
		autoFormatFor:    DefaultAutoFormatDuration,
		edgeRefreshAfter: DefaultEdgeRefreshDelay,
		newID:            newNodeID,
		subs:             make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snap.BatchTitle == "" {
		s.snap.BatchTitle = graph.DefaultBatchTitle
	}
	return s
}

// Close cancels pending transitions.
func (s *Store) Close() {
	s.sched.Stop()
}

// Subscribe registers fn for every event and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// =============================================================================
// Read access
// =============================================================================

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() graph.Snapshot {
	var snap graph.Snapshot
	s.read(func() { snap = s.snap.Clone() })
	return snap
}

// Node returns a copy of one node.
func (s *Store) Node(id string) (graph.Node, bool) {
	var (
		n  graph.Node
		ok bool
	)
	s.read(func() { n, ok = s.snap.Node(id) })
	return n, ok
}

// Children returns the ids of id's children in slot order.
func (s *Store) Children(id string) []string {
	var kids []string
	s.read(func() {
		kids = s.idx.Children(id)
		slices.SortStableFunc(kids, func(a, b string) int {
			return cmp.Compare(s.slotOf(a), s.slotOf(b))
		})
	})
	return kids
}

// PinnedNodeIDs returns the pinned list in order.
func (s *Store) PinnedNodeIDs() []string {
	var ids []string
	s.read(func() { ids = slices.Clone(s.snap.PinnedNodeIDs) })
	return ids
}

// BatchTitle returns the current title.
func (s *Store) BatchTitle() string {
	var title string
	s.read(func() { title = s.snap.BatchTitle })
	return title
}

// AutoFormatting reports whether an auto-formatting window is open.
func (s *Store) AutoFormatting() bool {
	var on bool
	s.read(func() { on = s.autoFormatting })
	return on
}

// CanUndo reports whether Undo would do anything.
func (s *Store) CanUndo() bool {
	var ok bool
	s.read(func() { ok = len(s.hist.undo) > 0 })
	return ok
}

// CanRedo reports whether Redo would do anything.
func (s *Store) CanRedo() bool {
	var ok bool
	s.read(func() { ok = len(s.hist.redo) > 0 })
	return ok
}

// =============================================================================
// Internals
// =============================================================================

// mutate runs fn under the lock. When fn reports a change an EventChanged
// is queued. Queued events are delivered after the lock is released.
func (s *Store) mutate(op string, fn func() bool) bool {
	s.mu.Lock()
	s.settle()
	changed := fn()
	if changed {
		s.events = append([]Event{{Kind: EventChanged, Op: op}}, s.events...)
		observability.Store().OnMutation(op, len(s.snap.Nodes), len(s.snap.Edges))
		s.logger.Debug("store mutation", "op", op, "nodes", len(s.snap.Nodes), "edges", len(s.snap.Edges))
	}
	events := s.events
	s.events = nil
	s.mu.Unlock()

	s.emit(events)
	return changed
}

// read runs fn under the lock after any deferred load layout, then
// delivers the events that layout produced.
func (s *Store) read(fn func()) {
	s.mu.Lock()
	s.settle()
	fn()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	s.emit(events)
}

func (s *Store) queue(e Event) {
	s.events = append(s.events, e)
}

func (s *Store) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}

// checkpoint pushes the current snapshot onto the undo stack.
func (s *Store) checkpoint() {
	s.hist.push(s.snap)
}

// replace swaps in a new snapshot and rebuilds the index.
func (s *Store) replace(snap graph.Snapshot) {
	s.snap = snap
	s.idx = graph.NewIndex(snap.Edges)
	s.drag = nil
}

func (s *Store) indexOf(id string) int {
	return graph.IndexOf(s.snap.Nodes, id)
}

func (s *Store) slotOf(id string) int {
	if i := s.indexOf(id); i >= 0 {
		return s.snap.Nodes[i].Data.Slot
	}
	return 0
}

// layoutOptions returns a copy of the configured spacing with no
// preservation.
func (s *Store) layoutOptions() layout.Options {
	return layout.Options{
		LevelSpacing: s.spacing.LevelSpacing,
		NodeSpacing:  s.spacing.NodeSpacing,
	}
}

// startAutoFormat opens the auto-formatting window, replacing any pending
// close.
func (s *Store) startAutoFormat() {
	if !s.autoFormatting {
		s.autoFormatting = true
		s.queue(Event{Kind: EventAutoFormat, AutoFormatting: true})
	}
	s.sched.After(keyAutoFormat, s.autoFormatFor, s.endAutoFormat)
}

func (s *Store) endAutoFormat() {
	s.mu.Lock()
	var events []Event
	if s.autoFormatting {
		s.autoFormatting = false
		events = []Event{{Kind: EventAutoFormat, AutoFormatting: false}}
	}
	s.mu.Unlock()
	s.emit(events)
}

func (s *Store) scheduleEdgeRefresh(id string) {
	s.sched.After(keyEdgeRefresh+id, s.edgeRefreshAfter, func() {
		s.mu.Lock()
		exists := s.indexOf(id) >= 0
		s.mu.Unlock()
		if exists {
			s.emit([]Event{{Kind: EventEdgeRefresh, NodeID: id}})
		}
	})
}
