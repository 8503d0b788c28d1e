package store

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
)

func newNodeID() string {
	return uuid.NewString()
}

// AddNode creates a node with the default label for its level and returns
// its id. With a parent, the node is attached one level below it and the
// parent leaves the pinned list; a level-2 parent or an unknown parent
// makes this a no-op returning "". Without a parent, level is clamped to
// [0, 2].
//
// Slots at the new node's level are re-read from the current vertical order
// with the new node last, then the tree layout runs with root and parent
// positions preserved so existing nodes do not jump.
func (s *Store) AddNode(parentID string, level int) string {
	var id string
	s.mutate("add_node", func() bool {
		id = s.addNode(parentID, level)
		return id != ""
	})
	return id
}

func (s *Store) addNode(parentID string, level int) string {
	level = graph.ClampLevel(level)
	if parentID != "" {
		i := s.indexOf(parentID)
		if i < 0 {
			return ""
		}
		pl := s.snap.Nodes[i].Data.Level
		if pl >= graph.MaxLevel {
			return ""
		}
		level = pl + 1
	}

	s.checkpoint()
	original := graph.CloneNodes(s.snap.Nodes)

	id := s.newID()
	slot := 0
	for _, n := range s.snap.Nodes {
		if n.Data.Level != level {
			continue
		}
		if p, _ := s.idx.Parent(n.ID); p == parentID {
			slot++
		}
	}
	s.snap.Nodes = append(s.snap.Nodes, graph.Node{
		ID:   id,
		Type: graph.NodeTypeTask,
		Data: graph.NodeData{Label: graph.DefaultLabel(level), Level: level, Slot: slot},
	})
	if parentID != "" {
		e := graph.NewEdge(parentID, id)
		s.snap.Edges = append(s.snap.Edges, e)
		s.idx.AddEdge(e)
		s.unpin(parentID)
	}

	layout.ResequenceSlots(s.snap.Nodes, s.idx, level, id)

	opts := s.layoutOptions()
	opts.PreserveRootPosition = true
	opts.OriginalNodes = original
	opts.PreserveParentID = parentID
	opts.PreserveRootXOnly = parentID == ""
	s.snap.Nodes = layout.Compute(s.snap.Nodes, s.snap.Edges, opts)

	s.startAutoFormat()
	s.scheduleEdgeRefresh(id)
	return id
}

// UpdateNodeLabel replaces a node's label.
func (s *Store) UpdateNodeLabel(id, label string) bool {
	return s.mutate("update_label", func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.checkpoint()
		s.snap.Nodes[i].Data.Label = label
		return true
	})
}

// ToggleNodeCompleted flips a node's completion flag.
func (s *Store) ToggleNodeCompleted(id string) bool {
	return s.mutate("toggle_completed", func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.checkpoint()
		s.snap.Nodes[i].Data.Completed = !s.snap.Nodes[i].Data.Completed
		return true
	})
}

// SetNodePosition moves one node without touching its descendants.
func (s *Store) SetNodePosition(id string, pos graph.Position) bool {
	return s.mutate("set_position", func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.checkpoint()
		s.snap.Nodes[i].Position = pos
		return true
	})
}

// SetBatchTitle renames the map. An empty title restores the placeholder.
func (s *Store) SetBatchTitle(title string) bool {
	if title == "" {
		title = graph.DefaultBatchTitle
	}
	return s.mutate("set_title", func() bool {
		if s.snap.BatchTitle == title {
			return false
		}
		s.checkpoint()
		s.snap.BatchTitle = title
		return true
	})
}

// DeleteNode removes a node and its descendants.
func (s *Store) DeleteNode(id string) int {
	return s.DeleteNodes([]string{id})
}

// DeleteNodes removes every listed node together with all of its
// descendants, and every edge touching a removed node. Overlapping subtrees
// are removed once. Removed ids also leave the pinned list. It returns the
// number of nodes removed.
func (s *Store) DeleteNodes(ids []string) int {
	var removed int
	s.mutate("delete_nodes", func() bool {
		gone := make(map[string]bool)
		for _, id := range ids {
			if s.indexOf(id) < 0 || gone[id] {
				continue
			}
			gone[id] = true
			for _, d := range s.idx.Descendants(id) {
				gone[d] = true
			}
		}
		if len(gone) == 0 {
			return false
		}

		s.checkpoint()
		s.snap.Nodes = slices.DeleteFunc(s.snap.Nodes, func(n graph.Node) bool { return gone[n.ID] })
		s.snap.Edges = slices.DeleteFunc(s.snap.Edges, func(e graph.Edge) bool { return gone[e.Source] || gone[e.Target] })
		s.snap.PinnedNodeIDs = slices.DeleteFunc(s.snap.PinnedNodeIDs, func(id string) bool { return gone[id] })
		for id := range gone {
			s.idx.RemoveNode(id)
			s.sched.Cancel(keyEdgeRefresh + id)
		}
		if s.drag != nil && gone[s.drag.id] {
			s.drag = nil
		}
		removed = len(gone)
		return true
	})
	return removed
}

// SwapNodeSlots exchanges slots between id and the sibling (same parent,
// same level) holding target. It is a no-op when id already has target or
// no sibling holds it. Positions are left alone.
func (s *Store) SwapNodeSlots(id string, target int) bool {
	return s.mutate("swap_slots", func() bool {
		return s.swapSlots(id, target, true)
	})
}

func (s *Store) swapSlots(id string, target int, record bool) bool {
	i := s.indexOf(id)
	if i < 0 || s.snap.Nodes[i].Data.Slot == target {
		return false
	}
	j := s.siblingWithSlot(id, target)
	if j < 0 {
		return false
	}
	if record {
		s.checkpoint()
	}
	a, b := &s.snap.Nodes[i].Data, &s.snap.Nodes[j].Data
	a.Slot, b.Slot = b.Slot, a.Slot
	return true
}

// Reflow recomputes positions from the current slots. Root X positions are
// kept; everything else follows slot order. Positions derive from slots, so
// no history is recorded: undoing the edit that changed the slots also
// restores the earlier positions.
func (s *Store) Reflow() bool {
	return s.mutate("reflow", func() bool {
		if len(s.snap.Nodes) == 0 {
			return false
		}
		opts := s.layoutOptions()
		opts.PreserveRootPosition = true
		opts.PreserveRootXOnly = true
		opts.OriginalNodes = graph.CloneNodes(s.snap.Nodes)
		s.snap.Nodes = layout.Compute(s.snap.Nodes, s.snap.Edges, opts)
		s.startAutoFormat()
		return true
	})
}

// siblingWithSlot finds the node sharing id's parent and level that holds
// slot. It returns -1 when there is none.
func (s *Store) siblingWithSlot(id string, slot int) int {
	i := s.indexOf(id)
	level := s.snap.Nodes[i].Data.Level
	parent, _ := s.idx.Parent(id)
	for j, n := range s.snap.Nodes {
		if j == i || n.Data.Level != level || n.Data.Slot != slot {
			continue
		}
		if p, _ := s.idx.Parent(n.ID); p == parent {
			return j
		}
	}
	return -1
}

// siblings returns copies of the nodes sharing id's parent and level,
// excluding id.
func (s *Store) siblings(id string) []graph.Node {
	i := s.indexOf(id)
	level := s.snap.Nodes[i].Data.Level
	parent, _ := s.idx.Parent(id)
	var out []graph.Node
	for j, n := range s.snap.Nodes {
		if j == i || n.Data.Level != level {
			continue
		}
		if p, _ := s.idx.Parent(n.ID); p == parent {
			out = append(out, n)
		}
	}
	return out
}

// ApplyAutoLayout re-derives every slot from current vertical order and
// recenters the whole map.
func (s *Store) ApplyAutoLayout() bool {
	return s.mutate("auto_layout", func() bool {
		if len(s.snap.Nodes) == 0 {
			return false
		}
		s.checkpoint()
		s.autoLayout()
		return true
	})
}

func (s *Store) autoLayout() {
	layout.ResequenceSlots(s.snap.Nodes, s.idx, layout.AllLevels, "")
	s.snap.Nodes = layout.Compute(s.snap.Nodes, s.snap.Edges, s.layoutOptions())
	s.startAutoFormat()
}

// SelectNode marks id as the only selected node. An empty or unknown id
// clears the selection. Selection is not recorded in history.
func (s *Store) SelectNode(id string) {
	s.mutate("select", func() bool {
		changed := false
		for i := range s.snap.Nodes {
			want := s.snap.Nodes[i].ID == id
			if s.snap.Nodes[i].Selected != want {
				s.snap.Nodes[i].Selected = want
				changed = true
			}
		}
		return changed
	})
}

// SetEditing toggles the editing flag of one node. It is not recorded in
// history.
func (s *Store) SetEditing(id string, editing bool) bool {
	return s.mutate("editing", func() bool {
		i := s.indexOf(id)
		if i < 0 || s.snap.Nodes[i].Editing == editing {
			return false
		}
		s.snap.Nodes[i].Editing = editing
		return true
	})
}
