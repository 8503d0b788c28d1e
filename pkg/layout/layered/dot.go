package layered

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
)

// ToDOT converts the forest to a labelled Graphviz DOT diagram.
// Completed todos are drawn grey with a dashed outline.
func ToDOT(nodes []graph.Node, edges []graph.Edge, opts Options) string {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Direction)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  ordering=out;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	fmt.Fprintf(&buf, "  nodesep=%.2f;\n", opts.NodeSep/pointsPerInch)
	fmt.Fprintf(&buf, "  ranksep=%.2f;\n", opts.RankSep/pointsPerInch)
	buf.WriteString("\n")

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range sortedEdges(nodes, edges) {
		if known[e.Source] && known[e.Target] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n graph.Node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Data.Label)}
	switch {
	case n.Data.Completed:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=grey40")
	case n.Data.Level == graph.LevelRoot:
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// sortedEdges orders edges by the target's slot so that, with ordering=out,
// Graphviz keeps siblings in slot order.
func sortedEdges(nodes []graph.Node, edges []graph.Edge) []graph.Edge {
	slot := make(map[string]int, len(nodes))
	for _, n := range nodes {
		slot[n.ID] = n.Data.Slot
	}
	out := slices.Clone(edges)
	slices.SortStableFunc(out, func(a, b graph.Edge) int {
		return cmp.Compare(slot[a.Target], slot[b.Target])
	})
	return out
}

// RenderSVG renders the labelled diagram from [ToDOT] to SVG.
func RenderSVG(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) ([]byte, error) {
	svg, err := render(ctx, ToDOT(nodes, edges, opts), graphviz.SVG)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeLayoutFailed, err, "render SVG")
	}
	return normalizeViewBox(svg), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's svg tag, which sizes in points, with
// one sized in pixels from the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
