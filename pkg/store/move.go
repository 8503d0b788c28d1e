package store

import (
	"cmp"
	"slices"

	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
)

// CanMoveNode reports whether id may be re-parented under target.
//
// The target may not be the node or one of its descendants, and shifting
// the node's subtree so the node lands one level below the target must keep
// every level within [0, 2]. Within those bounds the accepted moves by
// (node level, target level) are:
//
//	(1, 0), (2, 1)  promotion to the next level up
//	(1, 1)          a subtask becomes a todo of another subtask
//	(0, 0)          a root joins another root, if it has no grandchildren
//	(0, 1)          a childless root becomes a todo
//	(2, 0)          a todo becomes a subtask
func (s *Store) CanMoveNode(id, target string) bool {
	var ok bool
	s.read(func() { ok = s.canMove(id, target) })
	return ok
}

func (s *Store) canMove(id, target string) bool {
	if id == target {
		return false
	}
	ni, ti := s.indexOf(id), s.indexOf(target)
	if ni < 0 || ti < 0 {
		return false
	}
	if s.idx.IsDescendant(id, target) {
		return false
	}

	nl, tl := s.snap.Nodes[ni].Data.Level, s.snap.Nodes[ti].Data.Level
	shift := tl - nl + 1
	if !inRange(nl + shift) {
		return false
	}
	for _, d := range s.idx.Descendants(id) {
		if di := s.indexOf(d); di >= 0 && !inRange(s.snap.Nodes[di].Data.Level+shift) {
			return false
		}
	}

	switch {
	case tl == nl-1:
		return true
	case nl == graph.LevelSubtask && tl == graph.LevelSubtask:
		return true
	case nl == graph.LevelRoot && tl == graph.LevelRoot:
		for _, c := range s.idx.Children(id) {
			if s.idx.HasChildren(c) {
				return false
			}
		}
		return true
	case nl == graph.LevelRoot && tl == graph.LevelSubtask:
		return !s.idx.HasChildren(id)
	case nl == graph.LevelTodo && tl == graph.LevelRoot:
		return true
	}
	return false
}

func inRange(level int) bool {
	return level >= graph.LevelRoot && level <= graph.MaxLevel
}

// MoveNode re-parents id under target. An invalid move is rejected without
// any change and reports false.
//
// The old incoming edge is dropped, the node and its descendants shift
// levels so the node sits one below target, and the node takes the next
// free slot among target's children. The remaining siblings it left are
// renumbered, target leaves the pinned list, and the tree layout runs with
// root positions preserved.
func (s *Store) MoveNode(id, target string) bool {
	return s.mutate("move_node", func() bool {
		if !s.canMove(id, target) {
			return false
		}
		s.checkpoint()
		original := graph.CloneNodes(s.snap.Nodes)

		ni, ti := s.indexOf(id), s.indexOf(target)
		oldLevel := s.snap.Nodes[ni].Data.Level
		shift := s.snap.Nodes[ti].Data.Level - oldLevel + 1
		oldParent, hadParent := s.idx.Parent(id)

		if hadParent {
			s.idx.RemoveEdge(oldParent, id)
		}
		s.snap.Edges = slices.DeleteFunc(s.snap.Edges, func(e graph.Edge) bool { return e.Target == id })

		for _, d := range append([]string{id}, s.idx.Descendants(id)...) {
			if di := s.indexOf(d); di >= 0 {
				s.snap.Nodes[di].Data.Level = graph.ClampLevel(s.snap.Nodes[di].Data.Level + shift)
			}
		}

		slot := 0
		for _, c := range s.idx.Children(target) {
			slot = max(slot, s.slotOf(c)+1)
		}
		s.snap.Nodes[ni].Data.Slot = slot

		if s.snap.Nodes[ni].Data.Level > graph.LevelRoot {
			e := graph.NewEdge(target, id)
			s.snap.Edges = append(s.snap.Edges, e)
			s.idx.AddEdge(e)
		}
		s.unpin(target)
		s.compactSlots(oldParent, oldLevel)

		opts := s.layoutOptions()
		opts.PreserveRootPosition = true
		opts.OriginalNodes = original
		s.snap.Nodes = layout.Compute(s.snap.Nodes, s.snap.Edges, opts)
		return true
	})
}

// compactSlots renumbers the children of parent at level (parentless nodes
// when parent is "") to 0..n-1, keeping their slot order.
func (s *Store) compactSlots(parent string, level int) {
	var group []int
	for i, n := range s.snap.Nodes {
		if n.Data.Level != level {
			continue
		}
		if p, _ := s.idx.Parent(n.ID); p == parent {
			group = append(group, i)
		}
	}
	slices.SortStableFunc(group, func(a, b int) int {
		return cmp.Compare(s.snap.Nodes[a].Data.Slot, s.snap.Nodes[b].Data.Slot)
	})
	for slot, i := range group {
		s.snap.Nodes[i].Data.Slot = slot
	}
}
