package store

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout"
)

func buildSample(t *testing.T, s *Store) {
	t.Helper()
	r := s.AddNode("", 0)
	s.UpdateNodeLabel(r, "Launch")
	sub := s.AddNode(r, 0)
	s.UpdateNodeLabel(sub, "Docs")
	todo := s.AddNode(sub, 0)
	s.UpdateNodeLabel(todo, "Write README\nand CHANGELOG")
	s.ToggleNodeCompleted(todo)
	s.AddNode(r, 0)
	s.AddNode("", 0)
	s.PinNode(todo)
	s.SetBatchTitle("Q3")
}

func withoutPositions(t *testing.T, data []byte) graph.Snapshot {
	t.Helper()
	snap, err := graph.UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error = %v", err)
	}
	for i := range snap.Nodes {
		snap.Nodes[i].Position = graph.Position{}
	}
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src, _ := newTestStore(t)
	buildSample(t, src)
	saved := mustJSON(t, src)

	dst, _ := newTestStore(t)
	if err := dst.LoadJSON(saved); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}

	got := withoutPositions(t, mustJSON(t, dst))
	want := withoutPositions(t, saved)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadClearsHistoryAndLaysOut(t *testing.T) {
	src, _ := newTestStore(t)
	buildSample(t, src)
	saved := mustJSON(t, src)

	// Scramble stored positions; the load layout must ignore them.
	snap, _ := graph.UnmarshalSnapshot(saved)
	for i := range snap.Nodes {
		snap.Nodes[i].Position = graph.Position{X: float64(i * 1000), Y: -5}
	}
	scrambled, _ := graph.MarshalSnapshot(snap)

	dst, sched := newTestStore(t)
	dst.AddNode("", 0)
	if err := dst.LoadJSON(scrambled); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if !dst.loadPending {
		t.Error("layout should be deferred to the next tick")
	}
	sched.Advance(0)
	if dst.loadPending {
		t.Error("layout should run on the next tick")
	}
	if dst.CanUndo() || dst.CanRedo() {
		t.Error("load should clear history and the layout should not be recorded")
	}

	got := dst.Snapshot()
	want := layout.Compute(got.Nodes, got.Edges, layout.Options{})
	for i, n := range got.Nodes {
		if n.Position != want[i].Position {
			t.Errorf("node %s position = %+v, want %+v", n.ID, n.Position, want[i].Position)
		}
		if n.Position.X >= 1000 {
			t.Errorf("node %s kept its stored position", n.ID)
		}
	}
}

func TestLoadLayoutRunsBeforeNextOperation(t *testing.T) {
	src, _ := newTestStore(t)
	buildSample(t, src)
	saved := mustJSON(t, src)

	dst, _ := newTestStore(t)
	if err := dst.LoadJSON(saved); err != nil {
		t.Fatal(err)
	}
	// No tick yet: a read settles the pending layout first.
	if dst.AutoFormatting() != true {
		t.Error("settled load layout should open the auto-formatting window")
	}
	if dst.loadPending {
		t.Error("read should have settled the pending layout")
	}
}

func TestLoadMalformedKeepsState(t *testing.T) {
	s, _ := newTestStore(t)
	buildSample(t, s)
	before := mustJSON(t, s)
	undo := len(s.hist.undo)

	tests := []string{
		`{not json`,
		`{"nodes":[{"id":"a","data":{"level":9}}],"edges":[]}`,
		`{"nodes":[{"id":"a","data":{"level":0}}],"edges":[{"id":"e","source":"a","target":"ghost"}]}`,
		`{"nodes":[{"id":"a","data":{"level":0}},{"id":"b","data":{"level":0}},{"id":"c","data":{"level":2}},{"id":"d","data":{"level":2}}],"edges":[{"source":"a","target":"b"},{"source":"b","target":"c"},{"source":"c","target":"d"}]}`,
	}
	for _, in := range tests {
		err := s.LoadJSON([]byte(in))
		if !taskerr.Is(err, taskerr.ErrCodeInvalidSnapshot) {
			t.Errorf("LoadJSON(%q) error = %v, want INVALID_SNAPSHOT", in, err)
		}
	}
	if !bytes.Equal(before, mustJSON(t, s)) {
		t.Error("failed load changed the snapshot")
	}
	if len(s.hist.undo) != undo {
		t.Error("failed load touched history")
	}
}

func TestLoadDefaultsMissingFields(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.LoadJSON([]byte(`{"nodes":[{"id":"a","type":"task","position":{"x":0,"y":0},"data":{"label":"A","level":0,"slot":0}}],"edges":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.BatchTitle != graph.DefaultBatchTitle || snap.PinnedNodeIDs == nil || len(snap.PinnedNodeIDs) != 0 {
		t.Errorf("defaults not applied: title %q pins %v", snap.BatchTitle, snap.PinnedNodeIDs)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddNode("", 0)
	start := mustJSON(t, s)

	a := s.AddNode(r, 0)
	s.UpdateNodeLabel(a, "changed")
	s.PinNode(a)
	end := mustJSON(t, s)

	for range 3 {
		if !s.Undo() {
			t.Fatal("Undo() = false")
		}
	}
	if got := mustJSON(t, s); !bytes.Equal(got, start) {
		t.Errorf("after undo:\n%s\nwant:\n%s", got, start)
	}
	for range 3 {
		if !s.Redo() {
			t.Fatal("Redo() = false")
		}
	}
	if got := mustJSON(t, s); !bytes.Equal(got, end) {
		t.Errorf("after redo:\n%s\nwant:\n%s", got, end)
	}
	if s.Redo() {
		t.Error("Redo() with an empty stack should be a no-op")
	}
}

func TestUndoDepthIsBounded(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.AddNode("", 0)
	states := [][]byte{mustJSON(t, s)}
	for i := 1; i <= 6; i++ {
		s.UpdateNodeLabel(id, fmt.Sprintf("L%d", i))
		states = append(states, mustJSON(t, s))
	}

	for i := 0; i < DefaultHistoryDepth; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d = false", i+1)
		}
	}
	if got := mustJSON(t, s); !bytes.Equal(got, states[1]) {
		t.Errorf("after 5 undos label state = %s, want states[1]", got)
	}
	if s.Undo() {
		t.Error("6th undo should be a no-op")
	}
	if got := mustJSON(t, s); !bytes.Equal(got, states[1]) {
		t.Error("6th undo must never restore an older state")
	}
}

func TestMutationClearsRedo(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.AddNode("", 0)
	s.UpdateNodeLabel(id, "a")
	s.Undo()
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}
	s.UpdateNodeLabel(id, "b")
	if s.CanRedo() {
		t.Error("a new mutation should clear the redo stack")
	}
}

func TestWithHistoryDepth(t *testing.T) {
	s, _ := newTestStore(t, WithHistoryDepth(2))
	id := s.AddNode("", 0)
	for i := range 5 {
		s.UpdateNodeLabel(id, fmt.Sprint(i))
	}
	n := 0
	for s.Undo() {
		n++
	}
	if n != 2 {
		t.Errorf("undo steps = %d, want 2", n)
	}
}
