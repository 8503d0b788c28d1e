package store

import (
	"context"

	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout/layered"
)

// ApplyLayeredLayout runs the Graphviz layered layout in the background.
// On success the positions are applied by node id as one recorded
// mutation; nodes added since the layout started keep their positions. On
// failure the map is left untouched. The returned channel yields the
// outcome once and is then closed.
func (s *Store) ApplyLayeredLayout(ctx context.Context, opts layered.Options) <-chan error {
	var nodes []graph.Node
	var edges []graph.Edge
	s.read(func() {
		nodes = graph.CloneNodes(s.snap.Nodes)
		edges = graph.CloneEdges(s.snap.Edges)
	})

	done := make(chan error, 1)
	go func() {
		defer close(done)
		out, err := layered.Compute(ctx, nodes, edges, opts)
		if err != nil {
			s.logger.Warn("layered layout failed", "err", err)
			done <- err
			return
		}

		pos := make(map[string]graph.Position, len(out))
		for _, n := range out {
			pos[n.ID] = n.Position
		}
		s.mutate("layered_layout", func() bool {
			if len(s.snap.Nodes) == 0 {
				return false
			}
			s.checkpoint()
			for i := range s.snap.Nodes {
				if p, ok := pos[s.snap.Nodes[i].ID]; ok {
					s.snap.Nodes[i].Position = p
				}
			}
			s.startAutoFormat()
			return true
		})
		done <- nil
	}()
	return done
}
