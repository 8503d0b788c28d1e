package store

import (
	"context"
	"testing"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout/layered"
)

func TestDragMovesSubtreeFromStart(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddNode("", 0)
	a := s.AddNode(r, 0)
	todo := s.AddNode(a, 0)
	startA, startTodo := mustNode(t, s, a).Position, mustNode(t, s, todo).Position

	if !s.BeginDrag(a) {
		t.Fatal("BeginDrag() = false")
	}
	if id, ok := s.Dragging(); !ok || id != a {
		t.Errorf("Dragging() = %q, %v", id, ok)
	}
	s.DragTo(graph.Position{X: 10, Y: 10})
	s.DragTo(graph.Position{X: 25, Y: -5})

	delta := graph.Position{X: 25, Y: -5}
	if got := mustNode(t, s, a).Position; got != startA.Add(delta) {
		t.Errorf("dragged node at %+v, want %+v", got, startA.Add(delta))
	}
	if got := mustNode(t, s, todo).Position; got != startTodo.Add(delta) {
		t.Errorf("descendant at %+v, want %+v", got, startTodo.Add(delta))
	}
	if got := mustNode(t, s, r).Position; got != (graph.Position{}) {
		t.Errorf("parent moved to %+v", got)
	}
}

func TestCancelDragRestores(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddNode("", 0)
	a := s.AddNode(r, 0)
	before := mustJSON(t, s)
	depth := len(s.hist.undo)

	s.BeginDrag(a)
	s.DragTo(graph.Position{X: 100, Y: 100})
	if !s.CancelDrag() {
		t.Fatal("CancelDrag() = false")
	}
	if got := mustJSON(t, s); string(got) != string(before) {
		t.Error("CancelDrag() did not restore positions")
	}
	if len(s.hist.undo) != depth {
		t.Error("CancelDrag() should drop the drag's history entry")
	}
	if s.DragTo(graph.Position{X: 1}) || s.EndDrag() || s.CancelDrag() {
		t.Error("drag operations without a session should be no-ops")
	}
}

func TestEndDragSwapsWhenCrossed(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddNode("", 0)
	a := s.AddNode(r, 0)
	b := s.AddNode(r, 0)
	ay, by := mustNode(t, s, a).Position.Y, mustNode(t, s, b).Position.Y

	s.BeginDrag(b)
	s.DragTo(graph.Position{Y: ay - by - 20})
	if !s.EndDrag() {
		t.Fatal("EndDrag() = false")
	}
	if mustNode(t, s, b).Data.Slot != 0 || mustNode(t, s, a).Data.Slot != 1 {
		t.Error("dragging b above a should swap their slots")
	}

	// One undo reverts the whole gesture.
	s.Undo()
	if mustNode(t, s, b).Data.Slot != 1 || mustNode(t, s, b).Position.Y != by {
		t.Error("undo should restore the pre-drag state")
	}
}

func TestEndDragWithoutCrossingKeepsSlots(t *testing.T) {
	s, _ := newTestStore(t)
	r := s.AddNode("", 0)
	a := s.AddNode(r, 0)
	b := s.AddNode(r, 0)
	ay, by := mustNode(t, s, a).Position.Y, mustNode(t, s, b).Position.Y

	s.BeginDrag(b)
	// Closer to a than to its own start, but still below it.
	s.DragTo(graph.Position{Y: (ay - by) + 5})
	s.EndDrag()
	if mustNode(t, s, b).Data.Slot != 1 {
		t.Error("slots should only swap once the dragged node crosses its neighbour")
	}
}

func TestDeleteDuringDragEndsSession(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.AddNode("", 0)
	s.BeginDrag(a)
	s.DeleteNode(a)
	if _, ok := s.Dragging(); ok {
		t.Error("deleting the dragged node should end the session")
	}
}

func TestApplyLayeredLayoutFailureLeavesState(t *testing.T) {
	s, _ := newTestStore(t)
	buildSample(t, s)
	before := mustJSON(t, s)
	depth := len(s.hist.undo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := <-s.ApplyLayeredLayout(ctx, layered.Options{})
	if !taskerr.Is(err, taskerr.ErrCodeCancelled) {
		t.Fatalf("ApplyLayeredLayout() error = %v, want CANCELLED", err)
	}
	if string(mustJSON(t, s)) != string(before) || len(s.hist.undo) != depth {
		t.Error("failed layered layout changed the store")
	}
}

func TestApplyLayeredLayout(t *testing.T) {
	s, _ := newTestStore(t)
	buildSample(t, s)

	err := <-s.ApplyLayeredLayout(context.Background(), layered.Options{Direction: layered.LeftRight})
	if err != nil {
		t.Fatalf("ApplyLayeredLayout() error = %v", err)
	}
	snap := s.Snapshot()
	idx := graph.NewIndex(snap.Edges)
	for _, n := range snap.Nodes {
		if p, ok := idx.Parent(n.ID); ok {
			pn, _ := snap.Node(p)
			if n.Position.X <= pn.Position.X {
				t.Errorf("child %s (x=%v) not right of parent %s (x=%v)", n.ID, n.Position.X, p, pn.Position.X)
			}
		}
	}
	if !s.CanUndo() {
		t.Error("layered layout should be undoable")
	}
}
