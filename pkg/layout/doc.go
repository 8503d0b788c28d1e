// Package layout computes node positions for a task map.
//
// The primary engine is a recursive subtree-sizing tree layout: every root's
// subtree occupies its own vertical band, children sit a fixed horizontal
// distance to the right of their parent, and siblings are stacked top to
// bottom in slot order.
//
// # Algorithm
//
// [Compute] runs in three passes:
//
//  1. Size: each node's subtree height is the larger of its own estimated
//     text height ([EstimateTextHeight]) and the stacked heights of its
//     children plus NodeSpacing between them.
//  2. Place: roots are sorted by slot and stacked around y=0 with double
//     spacing between root groups; each node is placed at (x, centerY) and its
//     children are distributed inside its band at x+LevelSpacing.
//  3. Preserve (optional): whole subtrees are translated so chosen roots, and
//     optionally one parent, stay where the user last saw them.
//
// Nodes unreachable from a level-0 root keep their previous position. Output
// is deterministic for fixed input.
//
// # Helpers
//
//   - [FindSlotNearestY]: infer a dropped node's slot from its Y coordinate
//   - [CollectDescendantIDs], [FindRootAncestor]: forest traversal
//   - [ResequenceSlots]: re-derive sibling slots from current Y order
//
// The Graphviz-backed secondary layout lives in the layered subpackage.
package layout
