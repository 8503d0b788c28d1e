package store

import (
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/observability"
)

// SaveJSON encodes the current snapshot in the persisted JSON format.
func (s *Store) SaveJSON() ([]byte, error) {
	return graph.MarshalSnapshot(s.Snapshot())
}

// LoadJSON replaces the whole map with a decoded snapshot and clears
// history. Malformed input is logged and returned, and the store is left
// untouched.
//
// A full automatic layout is deferred to the next scheduler tick, so stored
// positions are never shown. The layout is not recorded in history, and any
// operation or read that arrives before the tick runs it first.
func (s *Store) LoadJSON(data []byte) error {
	snap, err := graph.UnmarshalSnapshot(data)
	if err != nil {
		s.logger.Error("load snapshot", "err", err)
		return err
	}

	s.mutate("load", func() bool {
		s.sched.Cancel(keyLoadLayout)
		s.replace(snap)
		s.hist.clear()
		s.loadPending = true
		s.sched.After(keyLoadLayout, 0, s.runLoadLayout)
		return true
	})
	return nil
}

func (s *Store) runLoadLayout() {
	s.read(func() {})
}

// settle runs a deferred post-load layout. Caller holds mu.
func (s *Store) settle() {
	if !s.loadPending {
		return
	}
	s.loadPending = false
	s.sched.Cancel(keyLoadLayout)
	if len(s.snap.Nodes) > 0 {
		s.autoLayout()
		s.queue(Event{Kind: EventChanged, Op: "load_layout"})
	}
}

// Undo restores the snapshot before the last recorded mutation. Selection
// and editing state stay as they are.
func (s *Store) Undo() bool {
	return s.mutate("undo", func() bool {
		prev, ok := s.hist.stepBack(s.snap)
		if !ok {
			return false
		}
		keepPresentation(prev, s.snap)
		s.replace(prev)
		observability.Store().OnHistory("undo", len(s.hist.undo), len(s.hist.redo))
		return true
	})
}

// Redo reapplies the last undone mutation.
func (s *Store) Redo() bool {
	return s.mutate("redo", func() bool {
		next, ok := s.hist.stepForward(s.snap)
		if !ok {
			return false
		}
		keepPresentation(next, s.snap)
		s.replace(next)
		observability.Store().OnHistory("redo", len(s.hist.undo), len(s.hist.redo))
		return true
	})
}
