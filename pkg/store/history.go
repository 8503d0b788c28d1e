package store

import "github.com/matzehuels/taskmap/pkg/graph"

// DefaultHistoryDepth bounds both the undo and redo stacks.
const DefaultHistoryDepth = 5

// history holds two bounded stacks of deep-copied snapshots. Entries never
// carry selection or editing flags.
type history struct {
	depth int
	undo  []graph.Snapshot
	redo  []graph.Snapshot
}

func newHistory(depth int) *history {
	if depth < 1 {
		depth = DefaultHistoryDepth
	}
	return &history{depth: depth}
}

// push records s as the state before a mutation. The oldest entry is
// evicted past depth and the redo stack is cleared.
func (h *history) push(s graph.Snapshot) {
	h.undo = bounded(append(h.undo, record(s)), h.depth)
	h.redo = nil
}

// stepBack pops the undo stack, saving cur for redo.
func (h *history) stepBack(cur graph.Snapshot) (graph.Snapshot, bool) {
	if len(h.undo) == 0 {
		return graph.Snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = bounded(append(h.redo, record(cur)), h.depth)
	return prev, true
}

// stepForward pops the redo stack, saving cur for undo.
func (h *history) stepForward(cur graph.Snapshot) (graph.Snapshot, bool) {
	if len(h.redo) == 0 {
		return graph.Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = bounded(append(h.undo, record(cur)), h.depth)
	return next, true
}

// discard drops the newest undo entry without touching redo.
func (h *history) discard() {
	if len(h.undo) > 0 {
		h.undo = h.undo[:len(h.undo)-1]
	}
}

func (h *history) clear() {
	h.undo, h.redo = nil, nil
}

// record copies s with the presentation flags cleared.
func record(s graph.Snapshot) graph.Snapshot {
	out := s.Clone()
	for i := range out.Nodes {
		out.Nodes[i].Selected = false
		out.Nodes[i].Editing = false
	}
	return out
}

// keepPresentation copies selection and editing flags from prev onto the
// nodes of cur that still exist.
func keepPresentation(cur, prev graph.Snapshot) {
	type flags struct{ selected, editing bool }
	was := make(map[string]flags, len(prev.Nodes))
	for _, n := range prev.Nodes {
		if n.Selected || n.Editing {
			was[n.ID] = flags{n.Selected, n.Editing}
		}
	}
	for i := range cur.Nodes {
		f := was[cur.Nodes[i].ID]
		cur.Nodes[i].Selected = f.selected
		cur.Nodes[i].Editing = f.editing
	}
}

func bounded(s []graph.Snapshot, depth int) []graph.Snapshot {
	if over := len(s) - depth; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
