package store

import (
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
)

// dragSession is the reference captured when a drag starts. Every move
// applies a fresh offset to these start positions, so rounding never
// accumulates across frames.
type dragSession struct {
	id    string
	start map[string]graph.Position
}

// BeginDrag starts dragging id with its whole subtree and records one undo
// entry for the gesture. A session already in progress is replaced.
func (s *Store) BeginDrag(id string) bool {
	return s.mutate("drag_begin", func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.checkpoint()
		start := map[string]graph.Position{id: s.snap.Nodes[i].Position}
		for _, d := range s.idx.Descendants(id) {
			if di := s.indexOf(d); di >= 0 {
				start[d] = s.snap.Nodes[di].Position
			}
		}
		s.drag = &dragSession{id: id, start: start}
		return true
	})
}

// DragTo moves the dragged subtree to its start positions plus delta.
func (s *Store) DragTo(delta graph.Position) bool {
	return s.mutate("drag_move", func() bool {
		if s.drag == nil {
			return false
		}
		s.applyDragOffset(delta)
		return true
	})
}

// EndDrag finishes the gesture. If the dragged node ended up past the
// sibling whose Y is nearest, the two exchange slots; positions stay where
// the drag left them.
func (s *Store) EndDrag() bool {
	return s.mutate("drag_end", func() bool {
		d := s.drag
		if d == nil {
			return false
		}
		s.drag = nil

		i := s.indexOf(d.id)
		if i < 0 {
			return true
		}
		n := s.snap.Nodes[i]
		slot, ok := layout.FindSlotNearestY(n.Position.Y, n.Data.Level, s.siblings(d.id))
		if !ok || slot == n.Data.Slot {
			return true
		}
		j := s.siblingWithSlot(d.id, slot)
		if j < 0 {
			return true
		}
		other := s.snap.Nodes[j].Position.Y
		crossed := (slot < n.Data.Slot && n.Position.Y < other) ||
			(slot > n.Data.Slot && n.Position.Y > other)
		if crossed {
			s.swapSlots(d.id, slot, false)
		}
		return true
	})
}

// CancelDrag puts the subtree back and drops the undo entry BeginDrag
// recorded.
func (s *Store) CancelDrag() bool {
	return s.mutate("drag_cancel", func() bool {
		if s.drag == nil {
			return false
		}
		s.applyDragOffset(graph.Position{})
		s.drag = nil
		s.hist.discard()
		return true
	})
}

// Dragging reports the id being dragged, if any.
func (s *Store) Dragging() (string, bool) {
	var (
		id string
		ok bool
	)
	s.read(func() {
		if s.drag != nil {
			id, ok = s.drag.id, true
		}
	})
	return id, ok
}

func (s *Store) applyDragOffset(delta graph.Position) {
	for i := range s.snap.Nodes {
		if p, ok := s.drag.start[s.snap.Nodes[i].ID]; ok {
			s.snap.Nodes[i].Position = p.Add(delta)
		}
	}
}
