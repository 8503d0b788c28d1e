package layout

import (
	"cmp"
	"slices"

	"github.com/matzehuels/taskmap/pkg/graph"
)

// AllLevels makes [ResequenceSlots] renumber every level.
const AllLevels = -1

// ResequenceSlots renumbers sibling slots from current top-to-bottom order,
// in place. Siblings share a parent and a level; parentless nodes form one
// group per level. Only nodes at level are touched (AllLevels for every
// level). last, when non-empty, is forced to the final slot of its group.
//
// Order is by Y, then previous slot, then position in nodes, so a graph
// whose positions are all equal (freshly loaded, never laid out) keeps its
// stored slot order.
func ResequenceSlots(nodes []graph.Node, idx *graph.Index, level int, last string) {
	groups := make(map[string][]int)
	var keys []string
	for i, n := range nodes {
		if level != AllLevels && n.Data.Level != level {
			continue
		}
		parent, _ := idx.Parent(n.ID)
		key := groupKey(parent, n.Data.Level)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range keys {
		members := groups[key]
		slices.SortStableFunc(members, func(a, b int) int {
			if al, bl := nodes[a].ID == last, nodes[b].ID == last; al != bl {
				if al {
					return 1
				}
				return -1
			}
			return cmp.Or(
				cmp.Compare(nodes[a].Position.Y, nodes[b].Position.Y),
				cmp.Compare(nodes[a].Data.Slot, nodes[b].Data.Slot),
				cmp.Compare(a, b),
			)
		})
		for slot, i := range members {
			nodes[i].Data.Slot = slot
		}
	}
}

func groupKey(parent string, level int) string {
	return parent + "\x00" + string(rune('0'+level))
}
