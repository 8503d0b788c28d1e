package graph

import "slices"

// =============================================================================
// Constants
// =============================================================================

// Hierarchy levels.
const (
	LevelRoot    = 0 // main task
	LevelSubtask = 1
	LevelTodo    = 2 // leaf todo, cannot have children

	MaxLevel = LevelTodo
)

// Render types written to the snapshot so a presentation layer can pick a
// node/edge component.
const (
	NodeTypeTask   = "task"
	EdgeTypeSmooth = "smoothstep"
)

// DefaultBatchTitle is used when a snapshot carries no batchTitle.
const DefaultBatchTitle = "Untitled Batch"

// ClampLevel limits a level to [LevelRoot, MaxLevel].
func ClampLevel(level int) int {
	return min(max(level, LevelRoot), MaxLevel)
}

// DefaultLabel returns the label given to a freshly created node at level.
func DefaultLabel(level int) string {
	switch ClampLevel(level) {
	case LevelRoot:
		return "New Task"
	case LevelSubtask:
		return "New Subtask"
	default:
		return "New Todo"
	}
}

// =============================================================================
// Node - Task
// =============================================================================

// Position anchors a node box. X is the box's left edge, so every node of a
// level shares one column X; Y is the box's vertical center, since box
// heights vary with the label.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the offset that moves q onto p.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// NodeData holds the persisted task payload.
type NodeData struct {
	Label     string `json:"label"`
	Level     int    `json:"level"`
	Slot      int    `json:"slot"`
	Completed bool   `json:"completed,omitempty"` // only meaningful at LevelTodo
}

// Node is a task in the map.
//
// Selected and Editing are presentation flags; they are never serialized.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`

	Selected bool `json:"-"`
	Editing  bool `json:"-"`
}

// =============================================================================
// Edge - Parent → Child
// =============================================================================

// Edge is a directed parent→child relation.
type Edge struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Type     string         `json:"type"`
	Animated bool           `json:"animated"`
	Style    map[string]any `json:"style,omitempty"`
}

// NewEdge builds the edge connecting parent to child with default styling.
func NewEdge(parent, child string) Edge {
	return Edge{
		ID:     EdgeID(parent, child),
		Source: parent,
		Target: child,
		Type:   EdgeTypeSmooth,
	}
}

// EdgeID returns the canonical id for the parent→child edge.
func EdgeID(parent, child string) string {
	return "e-" + parent + "-" + child
}

// =============================================================================
// Snapshot - Unit of Persistence and History
// =============================================================================

// Snapshot is the complete graph state: the unit of persistence and of
// undo/redo.
type Snapshot struct {
	Nodes         []Node   `json:"nodes"`
	Edges         []Edge   `json:"edges"`
	PinnedNodeIDs []string `json:"pinnedNodeIds"`
	BatchTitle    string   `json:"batchTitle"`
}

// NewSnapshot returns an empty snapshot with the given title.
func NewSnapshot(title string) Snapshot {
	if title == "" {
		title = DefaultBatchTitle
	}
	return Snapshot{
		Nodes:         []Node{},
		Edges:         []Edge{},
		PinnedNodeIDs: []string{},
		BatchTitle:    title,
	}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Nodes:         CloneNodes(s.Nodes),
		Edges:         CloneEdges(s.Edges),
		PinnedNodeIDs: cloneStrings(s.PinnedNodeIDs),
		BatchTitle:    s.BatchTitle,
	}
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	if i := IndexOf(s.Nodes, id); i >= 0 {
		return s.Nodes[i], true
	}
	return Node{}, false
}

// IsPinned reports whether id is in the pinned list.
func (s Snapshot) IsPinned(id string) bool {
	return slices.Contains(s.PinnedNodeIDs, id)
}

// IndexOf returns the position of the node with id in nodes, or -1.
func IndexOf(nodes []Node, id string) int {
	return slices.IndexFunc(nodes, func(n Node) bool { return n.ID == id })
}

// CloneNodes copies a node slice. Nodes hold no references, so a slice copy
// is deep.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return []Node{}
	}
	return slices.Clone(nodes)
}

// CloneEdges deep-copies an edge slice including style maps.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = e
		if e.Style != nil {
			style := make(map[string]any, len(e.Style))
			for k, v := range e.Style {
				style[k] = v
			}
			out[i].Style = style
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
