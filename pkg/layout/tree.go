package layout

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/taskmap/pkg/graph"
)

// Default spacing, in layout units.
const (
	DefaultLevelSpacing = 340.0
	DefaultNodeSpacing  = 20.0
)

// Text height estimate.
const (
	LineHeight    = 24.0
	TextPadding   = 40.0
	MinNodeHeight = 60.0
)

// Options configures [Compute].
type Options struct {
	// LevelSpacing is the horizontal distance between a parent and its
	// children. Zero means DefaultLevelSpacing.
	LevelSpacing float64

	// NodeSpacing is the vertical gap between sibling subtrees. Root groups
	// are separated by twice this value. Zero means DefaultNodeSpacing.
	NodeSpacing float64

	// PreserveRootPosition keeps each root's subtree anchored at the root's
	// position in OriginalNodes instead of recentering it.
	PreserveRootPosition bool

	// PreserveRootXOnly anchors only X; Y floats to absorb spacing changes.
	PreserveRootXOnly bool

	// OriginalNodes is the reference snapshot for preservation and for
	// UseOriginalPositions.
	OriginalNodes []graph.Node

	// PreserveRootID restricts preservation to one root. Empty means all.
	PreserveRootID string

	// UseOriginalPositions seeds root X from the reference snapshot (or from
	// the input nodes when OriginalNodes is empty) instead of 0.
	UseOriginalPositions bool

	// PreserveParentID re-pins one node to its exact original position after
	// root preservation and moves its subtree with it.
	PreserveParentID string
}

func (o Options) withDefaults() Options {
	if o.LevelSpacing <= 0 {
		o.LevelSpacing = DefaultLevelSpacing
	}
	if o.NodeSpacing <= 0 {
		o.NodeSpacing = DefaultNodeSpacing
	}
	return o
}

// EstimateTextHeight returns the vertical space a node needs for its label:
// LineHeight per line plus TextPadding, never less than MinNodeHeight.
func EstimateTextHeight(label string) float64 {
	lines := strings.Count(label, "\n") + 1
	return max(float64(lines)*LineHeight+TextPadding, MinNodeHeight)
}

// Compute returns a copy of nodes with positions derived from the forest
// described by edges. Identity, label, level and slot are never changed.
func Compute(nodes []graph.Node, edges []graph.Edge, opts Options) []graph.Node {
	e := newEngine(nodes, edges, opts.withDefaults())
	e.placeRoots()
	e.preserve()
	return e.nodes
}

// engine holds the working state of one Compute call.
type engine struct {
	opts    Options
	nodes   []graph.Node
	pos     map[string]int
	idx     *graph.Index
	heights map[string]float64
	placed  map[string]bool
}

func newEngine(nodes []graph.Node, edges []graph.Edge, opts Options) *engine {
	e := &engine{
		opts:    opts,
		nodes:   graph.CloneNodes(nodes),
		pos:     make(map[string]int, len(nodes)),
		idx:     graph.NewIndex(edges),
		heights: make(map[string]float64, len(nodes)),
		placed:  make(map[string]bool, len(nodes)),
	}
	for i, n := range e.nodes {
		e.pos[n.ID] = i
	}
	return e
}

// children returns id's existing children sorted by slot. Ties keep node
// list order.
func (e *engine) children(id string) []string {
	var kids []string
	for _, c := range e.idx.Children(id) {
		if _, ok := e.pos[c]; ok {
			kids = append(kids, c)
		}
	}
	slices.SortStableFunc(kids, func(a, b string) int {
		na, nb := e.nodes[e.pos[a]], e.nodes[e.pos[b]]
		return cmp.Or(cmp.Compare(na.Data.Slot, nb.Data.Slot), cmp.Compare(e.pos[a], e.pos[b]))
	})
	return kids
}

// roots returns the level-0 nodes sorted by slot.
func (e *engine) roots() []string {
	var out []string
	for _, n := range e.nodes {
		if n.Data.Level == graph.LevelRoot {
			out = append(out, n.ID)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(e.nodes[e.pos[a]].Data.Slot, e.nodes[e.pos[b]].Data.Slot)
	})
	return out
}

// subtreeHeight returns the band height id needs, memoized. visiting guards
// against malformed cyclic input.
func (e *engine) subtreeHeight(id string, visiting map[string]bool) float64 {
	if h, ok := e.heights[id]; ok {
		return h
	}
	own := EstimateTextHeight(e.nodes[e.pos[id]].Data.Label)
	if visiting[id] {
		return own
	}
	visiting[id] = true
	defer delete(visiting, id)

	kids := e.children(id)
	var stacked float64
	for i, c := range kids {
		if i > 0 {
			stacked += e.opts.NodeSpacing
		}
		stacked += e.subtreeHeight(c, visiting)
	}

	h := max(own, stacked)
	e.heights[id] = h
	return h
}

func (e *engine) placeRoots() {
	roots := e.roots()
	if len(roots) == 0 {
		return
	}

	gap := 2 * e.opts.NodeSpacing
	heights := make([]float64, len(roots))
	var total float64
	for i, r := range roots {
		if i > 0 {
			total += gap
		}
		heights[i] = e.subtreeHeight(r, map[string]bool{})
		total += heights[i]
	}

	var reference map[string]graph.Position
	if e.opts.UseOriginalPositions {
		if len(e.opts.OriginalNodes) > 0 {
			reference = positions(e.opts.OriginalNodes)
		} else {
			reference = positions(e.nodes)
		}
	}

	cursor := -total / 2
	for i, r := range roots {
		h := heights[i]
		x := 0.0
		if p, ok := reference[r]; ok {
			x = p.X
		}
		e.place(r, x, cursor+h/2)
		cursor += h + gap
	}
}

// place puts id at (x, centerY) and distributes its children inside its band.
func (e *engine) place(id string, x, centerY float64) {
	if e.placed[id] {
		return
	}
	e.placed[id] = true
	e.nodes[e.pos[id]].Position = graph.Position{X: x, Y: centerY}

	kids := e.children(id)
	if len(kids) == 0 {
		return
	}

	heights := make([]float64, len(kids))
	var total float64
	for i, c := range kids {
		if i > 0 {
			total += e.opts.NodeSpacing
		}
		heights[i] = e.subtreeHeight(c, map[string]bool{})
		total += heights[i]
	}

	cursor := centerY - total/2
	for i, c := range kids {
		h := heights[i]
		e.place(c, x+e.opts.LevelSpacing, cursor+h/2)
		cursor += h + e.opts.NodeSpacing
	}
}

func positions(nodes []graph.Node) map[string]graph.Position {
	out := make(map[string]graph.Position, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n.Position
	}
	return out
}
