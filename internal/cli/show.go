package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/store"
)

const (
	iconPin      = "◆"
	checkboxDone = "[x]"
	checkboxOpen = "[ ]"
)

var (
	styleDone  = lipgloss.NewStyle().Foreground(colorDim).Strikethrough(true)
	styleLevel = []lipgloss.Style{
		lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
		lipgloss.NewStyle().Foreground(colorWhite),
		lipgloss.NewStyle().Foreground(colorGray),
	}
)

// showCommand creates the "show" command that prints the map as a tree.
func (c *CLI) showCommand() *cobra.Command {
	var positions bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the task map as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *store.Store) error {
				snap := s.Snapshot()
				fmt.Fprint(cmd.OutOrStdout(), renderTree(snap, positions))
				if len(snap.PinnedNodeIDs) > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), StyleTitle.Render("Pinned"))
					fmt.Fprint(cmd.OutOrStdout(), renderPinned(snap))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&positions, "positions", "p", false, "show node coordinates")
	return cmd
}

// renderTree draws snap as an indented tree under its batch title. Roots
// are ordered top to bottom, children by slot.
func renderTree(snap graph.Snapshot, positions bool) string {
	if len(snap.Nodes) == 0 {
		return StyleTitle.Render(snap.BatchTitle) + "\n" + StyleDim.Render("  (no tasks)") + "\n"
	}

	f := newForest(snap)
	seen := make(map[string]bool)
	var build func(n graph.Node) any
	build = func(n graph.Node) any {
		seen[n.ID] = true
		line := nodeLine(n, snap.IsPinned(n.ID), positions)

		var kids []graph.Node
		for _, k := range f.children(n.ID) {
			if !seen[k.ID] {
				kids = append(kids, k)
			}
		}
		if len(kids) == 0 {
			return line
		}

		sub := tree.Root(line).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(StyleDim)
		for _, k := range kids {
			sub.Child(build(k))
		}
		return sub
	}

	t := tree.Root(StyleTitle.Render(snap.BatchTitle)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim)
	for _, r := range f.roots {
		t.Child(build(r))
	}
	return t.String() + "\n"
}

// forest orders a snapshot for display: roots (nodes without a parent)
// top to bottom, children by slot.
type forest struct {
	idx   *graph.Index
	byID  map[string]graph.Node
	roots []graph.Node
}

func newForest(snap graph.Snapshot) forest {
	f := forest{
		idx:  graph.NewIndex(snap.Edges),
		byID: make(map[string]graph.Node, len(snap.Nodes)),
	}
	for _, n := range snap.Nodes {
		f.byID[n.ID] = n
		if _, ok := f.idx.Parent(n.ID); !ok {
			f.roots = append(f.roots, n)
		}
	}
	slices.SortStableFunc(f.roots, func(a, b graph.Node) int {
		if c := cmp.Compare(a.Position.Y, b.Position.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Data.Slot, b.Data.Slot)
	})
	return f
}

func (f forest) children(id string) []graph.Node {
	var kids []graph.Node
	for _, k := range f.idx.Children(id) {
		if n, ok := f.byID[k]; ok {
			kids = append(kids, n)
		}
	}
	slices.SortStableFunc(kids, func(a, b graph.Node) int {
		if c := cmp.Compare(a.Data.Slot, b.Data.Slot); c != 0 {
			return c
		}
		return cmp.Compare(a.Position.Y, b.Position.Y)
	})
	return kids
}

// walk visits every reachable node depth-first in display order.
func (f forest) walk(fn func(n graph.Node, depth int)) {
	seen := make(map[string]bool)
	var visit func(n graph.Node, depth int)
	visit = func(n graph.Node, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		fn(n, depth)
		for _, k := range f.children(n.ID) {
			visit(k, depth+1)
		}
	}
	for _, r := range f.roots {
		visit(r, 0)
	}
}

// nodeLine formats one node: checkbox for todos, first label line, short
// id, and a pin marker.
func nodeLine(n graph.Node, pinned, positions bool) string {
	label, _, multi := strings.Cut(n.Data.Label, "\n")
	if multi {
		label += " …"
	}

	level := graph.ClampLevel(n.Data.Level)
	text := styleLevel[level].Render(label)
	if level == graph.LevelTodo {
		box := checkboxOpen
		if n.Data.Completed {
			box = checkboxDone
			text = styleDone.Render(label)
		}
		text = box + " " + text
	}

	text += " " + StyleDim.Render(shortID(n.ID))
	if pinned {
		text += " " + StyleHighlight.Render(iconPin)
	}
	if positions {
		text += " " + StyleDim.Render(fmt.Sprintf("(%.0f, %.0f)", n.Position.X, n.Position.Y))
	}
	return text
}

// renderPinned lists the pinned nodes with their list positions.
func renderPinned(snap graph.Snapshot) string {
	var b strings.Builder
	for i, id := range snap.PinnedNodeIDs {
		n, ok := snap.Node(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", StyleNumber.Render(fmt.Sprintf("%d.", i)), nodeLine(n, false, false))
	}
	return b.String()
}
