package layout

import "github.com/matzehuels/taskmap/pkg/graph"

// preserve translates freshly placed subtrees back onto their reference
// positions. Root offsets run first; the PreserveParentID override runs last
// and wins for the parent's subtree.
func (e *engine) preserve() {
	if len(e.opts.OriginalNodes) == 0 {
		return
	}
	orig := positions(e.opts.OriginalNodes)

	if e.opts.PreserveRootPosition {
		e.preserveRoots(orig)
	}
	if id := e.opts.PreserveParentID; id != "" {
		e.preserveParent(id, orig)
	}
}

func (e *engine) preserveRoots(orig map[string]graph.Position) {
	offsets := make(map[string]graph.Position)
	for _, r := range e.roots() {
		if e.opts.PreserveRootID != "" && r != e.opts.PreserveRootID {
			continue
		}
		p, ok := orig[r]
		if !ok || !e.placed[r] {
			continue
		}
		off := p.Sub(e.nodes[e.pos[r]].Position)
		if e.opts.PreserveRootXOnly {
			off.Y = 0
		}
		offsets[r] = off
	}
	if len(offsets) == 0 {
		return
	}

	// Nodes absent from the reference snapshot inherit the offset of the root
	// that governs them.
	for i, n := range e.nodes {
		if !e.placed[n.ID] {
			continue
		}
		if off, ok := offsets[e.governingRoot(n.ID)]; ok {
			e.nodes[i].Position = n.Position.Add(off)
		}
	}
}

func (e *engine) preserveParent(id string, orig map[string]graph.Position) {
	p, ok := orig[id]
	if !ok || !e.placed[id] {
		return
	}
	i := e.pos[id]
	off := p.Sub(e.nodes[i].Position)
	e.nodes[i].Position = p
	for _, d := range e.idx.Descendants(id) {
		if j, ok := e.pos[d]; ok && e.placed[d] {
			e.nodes[j].Position = e.nodes[j].Position.Add(off)
		}
	}
}

// governingRoot walks parent links up to the level-0 ancestor.
func (e *engine) governingRoot(id string) string {
	if e.nodes[e.pos[id]].Data.Level == graph.LevelRoot {
		return id
	}
	for _, a := range e.idx.Ancestors(id) {
		if i, ok := e.pos[a]; ok && e.nodes[i].Data.Level == graph.LevelRoot {
			return a
		}
	}
	return ""
}
