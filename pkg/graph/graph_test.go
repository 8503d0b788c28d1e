package graph

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

func sampleSnapshot() Snapshot {
	s := NewSnapshot("Sprint 12")
	s.Nodes = []Node{
		{ID: "a", Type: NodeTypeTask, Position: Position{X: 0, Y: 0}, Data: NodeData{Label: "Ship v1", Level: 0}},
		{ID: "b", Type: NodeTypeTask, Position: Position{X: 340, Y: -42}, Data: NodeData{Label: "Docs", Level: 1}},
		{ID: "c", Type: NodeTypeTask, Position: Position{X: 680, Y: -42}, Data: NodeData{Label: "Write intro", Level: 2, Completed: true}},
	}
	s.Edges = []Edge{NewEdge("a", "b"), NewEdge("b", "c")}
	s.Edges[0].Style = map[string]any{"stroke": "#888"}
	s.PinnedNodeIDs = []string{"c"}
	return s
}

func TestMarshalSnapshot(t *testing.T) {
	data, err := MarshalSnapshot(sampleSnapshot())
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"nodes", "edges", "pinnedNodeIds", "batchTitle"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	node := raw["nodes"].([]any)[0].(map[string]any)
	for _, key := range []string{"id", "type", "position", "data"} {
		if _, ok := node[key]; !ok {
			t.Errorf("node missing key %q", key)
		}
	}
	if _, ok := node["selected"]; ok {
		t.Error("transient selected flag should not be serialized")
	}

	edge := raw["edges"].([]any)[0].(map[string]any)
	for _, key := range []string{"id", "source", "target", "type", "animated", "style"} {
		if _, ok := edge[key]; !ok {
			t.Errorf("edge missing key %q", key)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := sampleSnapshot()
	data, err := MarshalSnapshot(want)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}

	if !slices.Equal(got.Nodes, want.Nodes) {
		t.Errorf("nodes = %+v, want %+v", got.Nodes, want.Nodes)
	}
	if len(got.Edges) != len(want.Edges) || got.Edges[1].ID != want.Edges[1].ID {
		t.Errorf("edges = %+v, want %+v", got.Edges, want.Edges)
	}
	if got.Edges[0].Style["stroke"] != "#888" {
		t.Errorf("edge style = %v, want stroke #888", got.Edges[0].Style)
	}
	if !slices.Equal(got.PinnedNodeIDs, want.PinnedNodeIDs) {
		t.Errorf("pinned = %v, want %v", got.PinnedNodeIDs, want.PinnedNodeIDs)
	}
	if got.BatchTitle != want.BatchTitle {
		t.Errorf("title = %q, want %q", got.BatchTitle, want.BatchTitle)
	}
}

func TestUnmarshalSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, s Snapshot)
	}{
		{
			name:  "LegacyDefaults",
			input: `{"nodes":[{"id":"a","type":"task","position":{"x":1,"y":2},"data":{"label":"A","level":0,"slot":0}}],"edges":[]}`,
			check: func(t *testing.T, s Snapshot) {
				if s.BatchTitle != DefaultBatchTitle {
					t.Errorf("BatchTitle = %q, want %q", s.BatchTitle, DefaultBatchTitle)
				}
				if s.PinnedNodeIDs == nil || len(s.PinnedNodeIDs) != 0 {
					t.Errorf("PinnedNodeIDs = %v, want empty non-nil", s.PinnedNodeIDs)
				}
			},
		},
		{
			name:  "EmptyTitleKept",
			input: `{"nodes":[],"edges":[],"batchTitle":""}`,
			check: func(t *testing.T, s Snapshot) {
				if s.BatchTitle != "" {
					t.Errorf("BatchTitle = %q, want empty", s.BatchTitle)
				}
			},
		},
		{name: "Syntax", input: `{"nodes": [`, wantErr: true},
		{name: "Null", input: `null`, wantErr: true},
		{name: "DuplicateID", input: `{"nodes":[{"id":"a","data":{}},{"id":"a","data":{}}]}`, wantErr: true},
		{name: "EmptyID", input: `{"nodes":[{"id":"","data":{}}]}`, wantErr: true},
		{name: "LevelOutOfRange", input: `{"nodes":[{"id":"a","data":{"level":3}}]}`, wantErr: true},
		{name: "NegativeSlot", input: `{"nodes":[{"id":"a","data":{"slot":-1}}]}`, wantErr: true},
		{name: "DanglingEdge", input: `{"nodes":[{"id":"a","data":{}}],"edges":[{"id":"e","source":"a","target":"x"}]}`, wantErr: true},
		{
			name:    "TwoParents",
			input:   `{"nodes":[{"id":"a","data":{}},{"id":"b","data":{}},{"id":"c","data":{"level":1}}],"edges":[{"source":"a","target":"c"},{"source":"b","target":"c"}]}`,
			wantErr: true,
		},
		{
			name:    "Cycle",
			input:   `{"nodes":[{"id":"a","data":{"level":1}},{"id":"b","data":{"level":1}}],"edges":[{"source":"a","target":"b"},{"source":"b","target":"a"}]}`,
			wantErr: true,
		},
		{
			name:    "RootWithParent",
			input:   `{"nodes":[{"id":"a","data":{"level":0}},{"id":"b","data":{"level":0}}],"edges":[{"source":"a","target":"b"}]}`,
			wantErr: true,
		},
		{
			name:    "LevelSkip",
			input:   `{"nodes":[{"id":"a","data":{"level":0}},{"id":"c","data":{"level":2}}],"edges":[{"source":"a","target":"c"}]}`,
			wantErr: true,
		},
		{
			name:    "TodoWithChild",
			input:   `{"nodes":[{"id":"c","data":{"level":2}},{"id":"d","data":{"level":2}}],"edges":[{"source":"c","target":"d"}]}`,
			wantErr: true,
		},
		{
			name:  "LevelsChained",
			input: `{"nodes":[{"id":"a","data":{"level":0}},{"id":"b","data":{"level":1}},{"id":"c","data":{"level":2}}],"edges":[{"source":"a","target":"b"},{"source":"b","target":"c"}]}`,
			check: func(t *testing.T, s Snapshot) {
				if len(s.Edges) != 2 {
					t.Errorf("len(Edges) = %d, want 2", len(s.Edges))
				}
			},
		},
		{name: "UnknownPin", input: `{"nodes":[],"pinnedNodeIds":["x"]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := UnmarshalSnapshot([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !taskerr.Is(err, taskerr.ErrCodeInvalidSnapshot) {
				t.Errorf("error code = %v, want %v", taskerr.GetCode(err), taskerr.ErrCodeInvalidSnapshot)
			}
			if tt.check != nil && err == nil {
				tt.check(t, s)
			}
		})
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := WriteSnapshotFile(sampleSnapshot(), path); err != nil {
		t.Fatalf("WriteSnapshotFile: %v", err)
	}
	s, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile: %v", err)
	}
	if len(s.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(s.Nodes))
	}

	if _, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadSnapshotFile(missing) should fail")
	}
}

func TestWriteSnapshotIndented(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSnapshot(NewSnapshot(""), &buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"nodes\": []") {
		t.Errorf("WriteSnapshot output not indented with empty nodes array: %s", buf.String())
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleSnapshot()
	c := orig.Clone()

	c.Nodes[0].Data.Label = "changed"
	c.Edges[0].Style["stroke"] = "red"
	c.PinnedNodeIDs[0] = "zzz"

	if orig.Nodes[0].Data.Label != "Ship v1" {
		t.Error("Clone shares node storage")
	}
	if orig.Edges[0].Style["stroke"] != "#888" {
		t.Error("Clone shares edge style maps")
	}
	if orig.PinnedNodeIDs[0] != "c" {
		t.Error("Clone shares pinned list")
	}
}

func TestClampLevel(t *testing.T) {
	tests := []struct{ in, want int }{{-1, 0}, {0, 0}, {1, 1}, {2, 2}, {5, 2}}
	for _, tt := range tests {
		if got := ClampLevel(tt.in); got != tt.want {
			t.Errorf("ClampLevel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPositionArithmetic(t *testing.T) {
	p := Position{X: 10, Y: 5}
	q := Position{X: 4, Y: 8}
	if got := p.Sub(q); got != (Position{X: 6, Y: -3}) {
		t.Errorf("Sub = %+v", got)
	}
	if got := q.Add(p.Sub(q)); got != p {
		t.Errorf("Add(Sub) = %+v, want %+v", got, p)
	}
}
