package store

import "slices"

// PinNode appends a childless node to the pinned list.
func (s *Store) PinNode(id string) bool {
	return s.mutate("pin", func() bool {
		if s.indexOf(id) < 0 || s.idx.HasChildren(id) || s.snap.IsPinned(id) {
			return false
		}
		s.checkpoint()
		s.snap.PinnedNodeIDs = append(s.snap.PinnedNodeIDs, id)
		return true
	})
}

// UnpinNode removes id from the pinned list.
func (s *Store) UnpinNode(id string) bool {
	return s.mutate("unpin", func() bool {
		if !s.snap.IsPinned(id) {
			return false
		}
		s.checkpoint()
		s.unpin(id)
		return true
	})
}

// UnpinAll empties the pinned list.
func (s *Store) UnpinAll() bool {
	return s.mutate("unpin_all", func() bool {
		if len(s.snap.PinnedNodeIDs) == 0 {
			return false
		}
		s.checkpoint()
		s.snap.PinnedNodeIDs = []string{}
		return true
	})
}

// ReorderPinnedNodes moves the pinned entry at from to index to.
func (s *Store) ReorderPinnedNodes(from, to int) bool {
	return s.mutate("reorder_pins", func() bool {
		n := len(s.snap.PinnedNodeIDs)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return false
		}
		s.checkpoint()
		id := s.snap.PinnedNodeIDs[from]
		pins := slices.Delete(s.snap.PinnedNodeIDs, from, from+1)
		s.snap.PinnedNodeIDs = slices.Insert(pins, to, id)
		return true
	})
}

// ToggleAllPinnedCompleted marks every pinned node completed unless all
// already are, in which case it clears them all. An empty pinned list is a
// no-op.
func (s *Store) ToggleAllPinnedCompleted() bool {
	return s.mutate("toggle_pinned", func() bool {
		var targets []int
		allDone := true
		for _, id := range s.snap.PinnedNodeIDs {
			if i := s.indexOf(id); i >= 0 {
				targets = append(targets, i)
				allDone = allDone && s.snap.Nodes[i].Data.Completed
			}
		}
		if len(targets) == 0 {
			return false
		}
		s.checkpoint()
		for _, i := range targets {
			s.snap.Nodes[i].Data.Completed = !allDone
		}
		return true
	})
}

// unpin drops id from the pinned list without recording history.
func (s *Store) unpin(id string) {
	s.snap.PinnedNodeIDs = slices.DeleteFunc(s.snap.PinnedNodeIDs, func(p string) bool { return p == id })
}
