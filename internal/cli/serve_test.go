package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/store"
)

type testAPI struct {
	store   *store.Store
	handler http.Handler
	saves   int
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ta := &testAPI{store: newTestStore(t)}
	api := &apiServer{
		store:  ta.store,
		logger: log.New(io.Discard),
		save: func(ctx context.Context) (string, error) {
			ta.saves++
			return "test", nil
		},
	}
	ta.handler = api.routes()
	return ta
}

func (ta *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPIAddNode(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.do(t, http.MethodPost, "/api/nodes", `{"label":"Root"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/nodes = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	root := decodeJSON[graph.Node](t, rec)
	if root.Data.Label != "Root" || root.Data.Level != graph.LevelRoot {
		t.Errorf("created node = %+v, want root labelled Root", root.Data)
	}

	sub := decodeJSON[graph.Node](t, ta.do(t, http.MethodPost, "/api/nodes", `{"parentId":"`+root.ID+`"}`))
	todo := decodeJSON[graph.Node](t, ta.do(t, http.MethodPost, "/api/nodes", `{"parentId":"`+sub.ID+`"}`))
	if todo.Data.Level != graph.LevelTodo {
		t.Errorf("grandchild level = %d, want %d", todo.Data.Level, graph.LevelTodo)
	}

	tests := []struct {
		name   string
		body   string
		status int
		code   taskerr.Code
	}{
		{"unknown parent", `{"parentId":"nope"}`, http.StatusNotFound, taskerr.ErrCodeNotFound},
		{"under todo", `{"parentId":"` + todo.ID + `"}`, http.StatusConflict, taskerr.ErrCodeInvalidTopology},
		{"bad label", `{"label":"a\u0000b"}`, http.StatusBadRequest, taskerr.ErrCodeInvalidInput},
		{"unknown field", `{"colour":"red"}`, http.StatusBadRequest, taskerr.ErrCodeInvalidInput},
		{"malformed", `{`, http.StatusBadRequest, taskerr.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/api/nodes", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if got := decodeJSON[errorResponse](t, rec); got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestAPIPatchNode(t *testing.T) {
	ta := newTestAPI(t)
	root := ta.store.AddNode("", graph.LevelRoot)
	sub := ta.store.AddNode(root, graph.LevelRoot)
	todo := ta.store.AddNode(sub, graph.LevelRoot)

	rec := ta.do(t, http.MethodPatch, "/api/nodes/"+todo, `{"label":"Done soon","completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH = %d: %s", rec.Code, rec.Body)
	}
	n := decodeJSON[graph.Node](t, rec)
	if n.Data.Label != "Done soon" || !n.Data.Completed {
		t.Errorf("patched node = %+v", n.Data)
	}

	// Same value again leaves it completed.
	n = decodeJSON[graph.Node](t, ta.do(t, http.MethodPatch, "/api/nodes/"+todo, `{"completed":true}`))
	if !n.Data.Completed {
		t.Error("repeating completed:true toggled the todo back")
	}

	n = decodeJSON[graph.Node](t, ta.do(t, http.MethodPatch, "/api/nodes/"+root, `{"position":{"x":10,"y":20}}`))
	if n.Position != (graph.Position{X: 10, Y: 20}) {
		t.Errorf("position = %+v, want {10 20}", n.Position)
	}

	if rec := ta.do(t, http.MethodPatch, "/api/nodes/missing", `{"label":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("PATCH missing = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPIPinUndoDelete(t *testing.T) {
	ta := newTestAPI(t)

	if rec := ta.do(t, http.MethodPost, "/api/undo", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("undo on fresh store = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	root := ta.store.AddNode("", graph.LevelRoot)
	child := ta.store.AddNode(root, graph.LevelRoot)

	rec := ta.do(t, http.MethodPost, "/api/nodes/"+child+"/pin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pin = %d: %s", rec.Code, rec.Body)
	}
	state := decodeJSON[stateResponse](t, rec)
	if !state.Snapshot.IsPinned(child) || !state.CanUndo {
		t.Errorf("state after pin = %+v", state)
	}

	if rec := ta.do(t, http.MethodPost, "/api/nodes/"+root+"/pin", ""); rec.Code != http.StatusConflict {
		t.Errorf("pin parent = %d, want %d", rec.Code, http.StatusConflict)
	}

	if rec := ta.do(t, http.MethodDelete, "/api/nodes/"+child+"/pin", ""); rec.Code != http.StatusOK {
		t.Errorf("unpin = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := ta.do(t, http.MethodDelete, "/api/nodes/"+child+"/pin", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unpin twice = %d, want %d", rec.Code, http.StatusNotFound)
	}

	state = decodeJSON[stateResponse](t, ta.do(t, http.MethodPost, "/api/undo", ""))
	if !state.Snapshot.IsPinned(child) || !state.CanRedo {
		t.Errorf("undo should restore the pin: %+v", state)
	}
	state = decodeJSON[stateResponse](t, ta.do(t, http.MethodPost, "/api/redo", ""))
	if state.Snapshot.IsPinned(child) {
		t.Error("redo should remove the pin again")
	}

	rec = ta.do(t, http.MethodDelete, "/api/nodes/"+root, "")
	if got := decodeJSON[map[string]int](t, rec); got["deleted"] != 2 {
		t.Errorf("delete = %v, want 2 deleted", got)
	}
	if rec := ta.do(t, http.MethodDelete, "/api/nodes/"+root, ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete again = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPIMoveNode(t *testing.T) {
	ta := newTestAPI(t)
	a := ta.store.AddNode("", graph.LevelRoot)
	b := ta.store.AddNode("", graph.LevelRoot)
	sub := ta.store.AddNode(a, graph.LevelRoot)

	rec := ta.do(t, http.MethodPost, "/api/nodes/"+sub+"/move", `{"target":"`+b+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move = %d: %s", rec.Code, rec.Body)
	}
	if kids := ta.store.Children(b); len(kids) != 1 || kids[0] != sub {
		t.Errorf("children of target = %v, want [%s]", kids, sub)
	}

	if rec := ta.do(t, http.MethodPost, "/api/nodes/"+sub+"/move", `{"target":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("move to unknown = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPISwapNode(t *testing.T) {
	ta := newTestAPI(t)
	a := ta.store.AddNode("", graph.LevelRoot)
	b := ta.store.AddNode("", graph.LevelRoot)
	nb, _ := ta.store.Node(b)

	rec := ta.do(t, http.MethodPost, "/api/nodes/"+a+"/swap", fmt.Sprintf(`{"slot":%d}`, nb.Data.Slot))
	if rec.Code != http.StatusOK {
		t.Fatalf("swap = %d: %s", rec.Code, rec.Body)
	}
	if na, _ := ta.store.Node(a); na.Data.Slot != nb.Data.Slot {
		t.Errorf("slot after swap = %d, want %d", na.Data.Slot, nb.Data.Slot)
	}

	if rec := ta.do(t, http.MethodPost, "/api/nodes/"+a+"/swap", `{"slot":99}`); rec.Code != http.StatusBadRequest {
		t.Errorf("swap to empty slot = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAPILayoutAndSave(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.AddNode("", graph.LevelRoot)

	if rec := ta.do(t, http.MethodPost, "/api/layout", ""); rec.Code != http.StatusOK {
		t.Errorf("tree layout = %d: %s", rec.Code, rec.Body)
	}
	if rec := ta.do(t, http.MethodPost, "/api/layout", `{"mode":"radial"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	got := decodeJSON[map[string]string](t, ta.do(t, http.MethodPost, "/api/save", ""))
	if got["name"] != "test" || ta.saves != 1 {
		t.Errorf("save = %v after %d saves", got, ta.saves)
	}

	state := decodeJSON[stateResponse](t, ta.do(t, http.MethodGet, "/api/snapshot", ""))
	if len(state.Snapshot.Nodes) != 1 {
		t.Errorf("snapshot nodes = %d, want 1", len(state.Snapshot.Nodes))
	}
}

func TestRequireLoopback(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{"127.0.0.1:7420", true},
		{"localhost:80", true},
		{"[::1]:7420", true},
		{"0.0.0.0:7420", false},
		{"192.168.1.5:7420", false},
		{":7420", false},
		{"nonsense", false},
	}
	for _, tt := range tests {
		err := requireLoopback(tt.addr)
		if (err == nil) != tt.ok {
			t.Errorf("requireLoopback(%q) = %v, want ok=%v", tt.addr, err, tt.ok)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code taskerr.Code
		want int
	}{
		{taskerr.ErrCodeNotFound, http.StatusNotFound},
		{taskerr.ErrCodeInvalidInput, http.StatusBadRequest},
		{taskerr.ErrCodeInvalidName, http.StatusBadRequest},
		{taskerr.ErrCodeInvalidTopology, http.StatusConflict},
		{taskerr.ErrCodeUnsupported, http.StatusNotImplemented},
		{taskerr.ErrCodeLayoutFailed, http.StatusUnprocessableEntity},
		{taskerr.ErrCodeStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
