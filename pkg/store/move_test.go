package store

import (
	"bytes"
	"testing"

	"github.com/matzehuels/taskmap/pkg/graph"
)

// moveFixture builds:
//
//	r1 ─ s1 ─ t1
//	   └ s2
//	r2 ─ s3
//	r3
func moveFixture(t *testing.T) (*Store, map[string]string) {
	t.Helper()
	s, _ := newTestStore(t)
	ids := map[string]string{}
	ids["r1"] = s.AddNode("", 0)
	ids["s1"] = s.AddNode(ids["r1"], 0)
	ids["t1"] = s.AddNode(ids["s1"], 0)
	ids["s2"] = s.AddNode(ids["r1"], 0)
	ids["r2"] = s.AddNode("", 0)
	ids["s3"] = s.AddNode(ids["r2"], 0)
	ids["r3"] = s.AddNode("", 0)
	return s, ids
}

func TestCanMoveNode(t *testing.T) {
	s, ids := moveFixture(t)

	tests := []struct {
		node, target string
		want         bool
	}{
		{"s1", "s1", false},
		{"r1", "t1", false},
		{"r1", "s1", false},
		{"s2", "r2", true},
		{"t1", "s2", true},
		{"s2", "s1", true},
		{"s1", "s2", false},
		{"r2", "r3", true},
		{"r1", "r2", false},
		{"r3", "s2", true},
		{"r2", "s1", false},
		{"t1", "r2", true},
		{"s3", "t1", false},
		{"r3", "t1", false},
	}
	for _, tt := range tests {
		if got := s.CanMoveNode(ids[tt.node], ids[tt.target]); got != tt.want {
			t.Errorf("CanMoveNode(%s, %s) = %v, want %v", tt.node, tt.target, got, tt.want)
		}
	}

	if s.CanMoveNode("missing", ids["r1"]) || s.CanMoveNode(ids["s1"], "missing") {
		t.Error("CanMoveNode with unknown ids should be false")
	}
}

func TestMoveNodeSubtaskUnderSibling(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.AddNode("", 0)
	b := s.AddNode(a, 0)
	c := s.AddNode(a, 0)

	if !s.MoveNode(b, c) {
		t.Fatal("MoveNode() = false")
	}
	if got := mustNode(t, s, b).Data.Level; got != 2 {
		t.Errorf("level of b = %d, want 2", got)
	}
	if hasEdge(s, a, b) {
		t.Error("edge a→b should be gone")
	}
	if !hasEdge(s, c, b) {
		t.Error("edge c→b should exist")
	}
	if got := mustNode(t, s, c).Data.Slot; got != 0 {
		t.Errorf("remaining sibling slot = %d, want 0", got)
	}
}

func TestMoveNodeRootUnderRoot(t *testing.T) {
	s, ids := moveFixture(t)
	if !s.MoveNode(ids["r2"], ids["r3"]) {
		t.Fatal("MoveNode() = false")
	}
	if got := mustNode(t, s, ids["r2"]).Data.Level; got != 1 {
		t.Errorf("r2 level = %d, want 1", got)
	}
	if got := mustNode(t, s, ids["s3"]).Data.Level; got != 2 {
		t.Errorf("s3 level = %d, want 2", got)
	}
	// r1 and r3 are the remaining roots, renumbered contiguously.
	if mustNode(t, s, ids["r1"]).Data.Slot != 0 || mustNode(t, s, ids["r3"]).Data.Slot != 1 {
		t.Error("root slots not compacted")
	}
}

func TestMoveNodeTakesNextSlot(t *testing.T) {
	s, ids := moveFixture(t)
	if !s.MoveNode(ids["s3"], ids["r1"]) {
		t.Fatal("MoveNode() = false")
	}
	if got := mustNode(t, s, ids["s3"]).Data.Slot; got != 2 {
		t.Errorf("moved slot = %d, want 2", got)
	}
}

func TestMoveNodeUnpinsTarget(t *testing.T) {
	s, ids := moveFixture(t)
	s.PinNode(ids["s2"])
	if !s.MoveNode(ids["t1"], ids["s2"]) {
		t.Fatal("MoveNode() = false")
	}
	if s.Snapshot().IsPinned(ids["s2"]) {
		t.Error("target gained a child and should be unpinned")
	}
}

func TestMoveNodeInvalidIsRejected(t *testing.T) {
	s, ids := moveFixture(t)
	before := mustJSON(t, s)
	depth := len(s.hist.undo)

	if s.MoveNode(ids["r1"], ids["t1"]) {
		t.Error("moving under a descendant should be rejected")
	}
	if s.MoveNode(ids["s1"], ids["s2"]) {
		t.Error("moving a subtask with todos under a subtask should be rejected")
	}
	if !bytes.Equal(before, mustJSON(t, s)) {
		t.Error("rejected move changed the snapshot")
	}
	if len(s.hist.undo) != depth {
		t.Error("rejected move recorded history")
	}
}

func TestMoveSequencesKeepForestInvariants(t *testing.T) {
	s, ids := moveFixture(t)
	names := []string{"r1", "s1", "t1", "s2", "r2", "s3", "r3"}

	// Try every ordered pair twice; CanMoveNode guards each attempt.
	for range 2 {
		for _, a := range names {
			for _, b := range names {
				s.MoveNode(ids[a], ids[b])
				checkForest(t, s.Snapshot())
			}
		}
	}
}

func checkForest(t *testing.T, snap graph.Snapshot) {
	t.Helper()
	if err := graph.Validate(snap); err != nil {
		t.Fatalf("invalid snapshot after move: %v", err)
	}
	idx := graph.NewIndex(snap.Edges)
	for _, n := range snap.Nodes {
		if n.Data.Level < 0 || n.Data.Level > graph.MaxLevel {
			t.Fatalf("node %s level %d out of range", n.ID, n.Data.Level)
		}
		if p, ok := idx.Parent(n.ID); ok {
			pn, _ := snap.Node(p)
			if n.Data.Level != pn.Data.Level+1 {
				t.Fatalf("node %s level %d under parent level %d", n.ID, n.Data.Level, pn.Data.Level)
			}
		}
		if idx.IsDescendant(n.ID, n.ID) {
			t.Fatalf("node %s reachable from itself", n.ID)
		}
	}
}
