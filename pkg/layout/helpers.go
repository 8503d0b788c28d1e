package layout

import (
	"math"

	"github.com/matzehuels/taskmap/pkg/graph"
)

// FindSlotNearestY returns the slot of the level-matching node whose Y is
// closest to y. Ties go to the earlier node. ok is false when no node has
// that level.
func FindSlotNearestY(y float64, level int, nodes []graph.Node) (slot int, ok bool) {
	best := math.Inf(1)
	for _, n := range nodes {
		if n.Data.Level != level {
			continue
		}
		if d := math.Abs(n.Position.Y - y); d < best {
			best, slot, ok = d, n.Data.Slot, true
		}
	}
	return slot, ok
}

// CollectDescendantIDs returns every node reachable from id through edges,
// excluding id.
func CollectDescendantIDs(id string, edges []graph.Edge) []string {
	return graph.NewIndex(edges).Descendants(id)
}

// FindRootAncestor walks incoming edges from id to its level-0 ancestor.
// A root returns itself; an orphan or unknown id returns "".
func FindRootAncestor(id string, nodes []graph.Node, edges []graph.Edge) string {
	e := newEngine(nodes, edges, Options{})
	if _, ok := e.pos[id]; !ok {
		return ""
	}
	return e.governingRoot(id)
}
