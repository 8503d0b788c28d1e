package layered

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/taskmap/pkg/cache"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
	"github.com/matzehuels/taskmap/pkg/observability"
)

// Direction is the rank direction handed to Graphviz.
type Direction string

const (
	TopDown   Direction = "TB"
	LeftRight Direction = "LR"
)

// ParseDirection accepts "TB" or "LR" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case TopDown:
		return TopDown, nil
	case LeftRight:
		return LeftRight, nil
	}
	return "", taskerr.New(taskerr.ErrCodeInvalidInput, "unknown direction %q (want TB or LR)", s)
}

// Defaults, in layout units.
const (
	DefaultNodeSep   = 40.0
	DefaultRankSep   = 80.0
	DefaultNodeWidth = 220.0
	DefaultCacheTTL  = 24 * time.Hour
)

// pointsPerInch converts Graphviz inches to layout units.
const pointsPerInch = 72.0

const engineName = "layered"

// Options configures [Compute].
type Options struct {
	Direction Direction // default LeftRight
	NodeSep   float64   // gap between nodes in one rank
	RankSep   float64   // gap between ranks
	NodeWidth float64   // every node's box width

	// Cache stores computed positions. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Direction == "" {
		o.Direction = LeftRight
	}
	if o.NodeSep <= 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.RankSep <= 0 {
		o.RankSep = DefaultRankSep
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return o
}

// Result is delivered by [ComputeAsync].
type Result struct {
	Nodes []graph.Node
	Err   error
}

// ComputeAsync runs [Compute] on its own goroutine. The channel receives
// exactly one Result and is then closed.
func ComputeAsync(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) <-chan Result {
	nodes = graph.CloneNodes(nodes)
	edges = graph.CloneEdges(edges)
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		out, err := Compute(ctx, nodes, edges, opts)
		ch <- Result{Nodes: out, Err: err}
	}()
	return ch
}

// Compute returns a copy of nodes positioned by Graphviz. Nodes Graphviz did
// not report keep their position. On any failure the copy is returned
// unchanged along with the error.
func Compute(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) ([]graph.Node, error) {
	opts = opts.withDefaults()
	out := graph.CloneNodes(nodes)
	if len(out) == 0 {
		return out, nil
	}

	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, engineName, len(out))
	pos, err := positionsFor(ctx, out, edges, opts)
	observability.Layout().OnLayoutComplete(ctx, engineName, time.Since(start), err)
	if err != nil {
		return out, err
	}

	for i := range out {
		if p, ok := pos[out[i].ID]; ok {
			out[i].Position = p
		}
	}
	return out, nil
}

func positionsFor(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]graph.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeCancelled, err, "layered layout cancelled")
	}

	key := cacheKey(nodes, edges, opts)
	if opts.Cache != nil {
		if data, ok, err := opts.Cache.Get(ctx, key); err == nil && ok {
			var pos map[string]graph.Position
			if json.Unmarshal(data, &pos) == nil {
				return pos, nil
			}
		}
	}

	pos, err := run(ctx, nodes, edges, opts)
	if err != nil {
		return nil, err
	}

	if opts.Cache != nil {
		if data, err := json.Marshal(pos); err == nil {
			_ = opts.Cache.Set(ctx, key, data, opts.CacheTTL)
		}
	}
	return pos, nil
}

// cacheKey covers everything that influences the result. Positions are
// deliberately left out since Graphviz ignores them.
func cacheKey(nodes []graph.Node, edges []graph.Edge, opts Options) string {
	type sized struct {
		ID    string
		Lines int
		Slot  int
	}
	ns := make([]sized, len(nodes))
	for i, n := range nodes {
		ns[i] = sized{n.ID, strings.Count(n.Data.Label, "\n") + 1, n.Data.Slot}
	}
	es := make([][2]string, len(edges))
	for i, e := range edges {
		es[i] = [2]string{e.Source, e.Target}
	}
	return cache.Key(engineName, ns, es, opts.Direction, opts.NodeSep, opts.RankSep, opts.NodeWidth)
}

func run(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]graph.Position, error) {
	dot, names := layoutDOT(nodes, edges, opts)

	plain, err := render(ctx, dot, graphviz.Format("plain"))
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeLayoutFailed, err, "layered layout")
	}

	centers, err := parsePlain(plain)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeLayoutFailed, err, "layered layout")
	}

	pos := make(map[string]graph.Position, len(centers))
	for i, n := range nodes {
		c, ok := centers[names[i]]
		if !ok {
			continue
		}
		pos[n.ID] = anchor(c, opts.NodeWidth)
	}
	return pos, nil
}

// anchor converts a Graphviz box center to a node position: left edge for
// X, center for Y.
func anchor(center graph.Position, width float64) graph.Position {
	return graph.Position{X: center.X - width/2, Y: center.Y}
}

// layoutDOT emits an unlabelled graph of fixed-size boxes. Node ids are
// replaced by n0, n1, ... so arbitrary ids never need DOT quoting; names[i]
// is the DOT name of nodes[i].
func layoutDOT(nodes []graph.Node, edges []graph.Edge, opts Options) (string, []string) {
	names := make([]string, len(nodes))
	byID := make(map[string]string, len(nodes))
	for i, n := range nodes {
		names[i] = "n" + strconv.Itoa(i)
		byID[n.ID] = names[i]
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Direction)
	fmt.Fprintf(&buf, "  nodesep=%.4f;\n", opts.NodeSep/pointsPerInch)
	fmt.Fprintf(&buf, "  ranksep=%.4f;\n", opts.RankSep/pointsPerInch)
	buf.WriteString("  ordering=out;\n")
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")
	buf.WriteString("\n")

	w := opts.NodeWidth / pointsPerInch
	for i, n := range nodes {
		h := layout.EstimateTextHeight(n.Data.Label) / pointsPerInch
		fmt.Fprintf(&buf, "  %s [width=%.4f, height=%.4f];\n", names[i], w, h)
	}

	buf.WriteString("\n")
	for _, e := range sortedEdges(nodes, edges) {
		src, ok1 := byID[e.Source]
		dst, ok2 := byID[e.Target]
		if ok1 && ok2 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", src, dst)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), names
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// parsePlain reads node centers from Graphviz "plain" output and converts
// them to layout units with Y growing downward.
//
//	graph scale width height
//	node name x y width height label style shape color fillcolor
func parsePlain(data []byte) (map[string]graph.Position, error) {
	var height float64
	sawGraph := false
	centers := make(map[string]graph.Position)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "graph":
			if len(f) < 4 {
				return nil, fmt.Errorf("malformed graph line %q", sc.Text())
			}
			h, err := strconv.ParseFloat(f[3], 64)
			if err != nil {
				return nil, fmt.Errorf("graph height: %w", err)
			}
			height, sawGraph = h, true
		case "node":
			if len(f) < 4 {
				return nil, fmt.Errorf("malformed node line %q", sc.Text())
			}
			x, err := strconv.ParseFloat(f[2], 64)
			if err != nil {
				return nil, fmt.Errorf("node %s x: %w", f[1], err)
			}
			y, err := strconv.ParseFloat(f[3], 64)
			if err != nil {
				return nil, fmt.Errorf("node %s y: %w", f[1], err)
			}
			centers[strings.Trim(f[1], `"`)] = graph.Position{X: x * pointsPerInch, Y: (height - y) * pointsPerInch}
		case "stop":
			if !sawGraph {
				return nil, fmt.Errorf("missing graph line")
			}
			return centers, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawGraph {
		return nil, fmt.Errorf("missing graph line")
	}
	return centers, nil
}
