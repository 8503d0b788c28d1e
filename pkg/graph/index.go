package graph

import "slices"

// =============================================================================
// Index - Adjacency Lookup
// =============================================================================

// Index maps parents to children and children to parents.
//
// The store keeps one Index alive and updates it edge by edge instead of
// re-filtering the edge list on every lookup. Children keep edge insertion
// order. The zero value is not usable; call [NewIndex].
type Index struct {
	children map[string][]string
	parent   map[string]string
}

// NewIndex builds an index from edges.
func NewIndex(edges []Edge) *Index {
	x := &Index{
		children: make(map[string][]string),
		parent:   make(map[string]string, len(edges)),
	}
	for _, e := range edges {
		x.AddEdge(e)
	}
	return x
}

// AddEdge records e. Duplicate edges are ignored.
func (x *Index) AddEdge(e Edge) {
	if slices.Contains(x.children[e.Source], e.Target) {
		return
	}
	x.children[e.Source] = append(x.children[e.Source], e.Target)
	x.parent[e.Target] = e.Source
}

// RemoveEdge drops the source→target relation.
func (x *Index) RemoveEdge(source, target string) {
	kids := x.children[source]
	if i := slices.Index(kids, target); i >= 0 {
		kids = slices.Delete(kids, i, i+1)
		if len(kids) == 0 {
			delete(x.children, source)
		} else {
			x.children[source] = kids
		}
	}
	if x.parent[target] == source {
		delete(x.parent, target)
	}
}

// RemoveNode drops every relation touching id.
func (x *Index) RemoveNode(id string) {
	if p, ok := x.parent[id]; ok {
		x.RemoveEdge(p, id)
	}
	for _, c := range x.children[id] {
		if x.parent[c] == id {
			delete(x.parent, c)
		}
	}
	delete(x.children, id)
}

// Children returns a copy of id's children in insertion order.
func (x *Index) Children(id string) []string {
	return slices.Clone(x.children[id])
}

// HasChildren reports whether id has at least one child.
func (x *Index) HasChildren(id string) bool {
	return len(x.children[id]) > 0
}

// Parent returns id's parent.
func (x *Index) Parent(id string) (string, bool) {
	p, ok := x.parent[id]
	return p, ok
}

// Descendants returns every node reachable from id, breadth first, excluding
// id itself. Malformed cyclic input terminates.
func (x *Index) Descendants(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range x.children[cur] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// IsDescendant reports whether id is reachable from ancestor.
func (x *Index) IsDescendant(ancestor, id string) bool {
	return ancestor != id && slices.Contains(x.Ancestors(id), ancestor)
}

// Ancestors returns id's parent chain, nearest first.
func (x *Index) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for p, ok := x.parent[id]; ok && !seen[p]; p, ok = x.parent[p] {
		seen[p] = true
		out = append(out, p)
	}
	return out
}
