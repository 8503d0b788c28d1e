package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// MarshalSnapshot converts a snapshot to indented JSON bytes.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes and validates snapshot JSON.
//
// Missing pinnedNodeIds default to an empty list and a missing batchTitle to
// [DefaultBatchTitle], so snapshots written before those fields existed still
// load. Every failure is an INVALID_SNAPSHOT error.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	return readSnapshotFrom(bytes.NewReader(data))
}

// WriteSnapshot writes a snapshot as JSON to an io.Writer.
func WriteSnapshot(s Snapshot, w io.Writer) error {
	return writeSnapshotTo(s, w)
}

// ReadSnapshot decodes a snapshot from an io.Reader.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	return readSnapshotFrom(r)
}

// WriteSnapshotFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(s Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(s, f)
}

// ReadSnapshotFile reads a snapshot from a JSON file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readSnapshotFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

// wireSnapshot distinguishes absent optional fields from empty ones.
type wireSnapshot struct {
	Nodes         []Node   `json:"nodes"`
	Edges         []Edge   `json:"edges"`
	PinnedNodeIDs []string `json:"pinnedNodeIds"`
	BatchTitle    *string  `json:"batchTitle"`
}

func writeSnapshotTo(s Snapshot, w io.Writer) error {
	out := s.Clone()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readSnapshotFrom(r io.Reader) (Snapshot, error) {
	var data *wireSnapshot
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Snapshot{}, taskerr.Wrap(taskerr.ErrCodeInvalidSnapshot, err, "decode snapshot")
	}
	if data == nil {
		return Snapshot{}, taskerr.New(taskerr.ErrCodeInvalidSnapshot, "snapshot is null")
	}

	s := Snapshot{
		Nodes:         CloneNodes(data.Nodes),
		Edges:         CloneEdges(data.Edges),
		PinnedNodeIDs: cloneStrings(data.PinnedNodeIDs),
		BatchTitle:    DefaultBatchTitle,
	}
	if data.BatchTitle != nil {
		s.BatchTitle = *data.BatchTitle
	}

	if err := Validate(s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks structural integrity: unique non-empty node ids, levels
// within range, edges between known nodes, at most one parent per node,
// every child exactly one level below its parent (so todos have no
// children), and pins referring to known nodes.
func Validate(s Snapshot) error {
	ids := make(map[string]bool, len(s.Nodes))
	levels := make(map[string]int, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "node with empty id")
		}
		if ids[n.ID] {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "duplicate node id %q", n.ID)
		}
		if n.Data.Level != ClampLevel(n.Data.Level) {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "node %q has level %d outside [0,%d]", n.ID, n.Data.Level, MaxLevel)
		}
		if n.Data.Slot < 0 {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "node %q has negative slot", n.ID)
		}
		ids[n.ID] = true
		levels[n.ID] = n.Data.Level
	}

	parents := make(map[string]string, len(s.Edges))
	for _, e := range s.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "edge %s→%s references unknown node", e.Source, e.Target)
		}
		if p, ok := parents[e.Target]; ok && p != e.Source {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "node %q has more than one parent", e.Target)
		}
		if levels[e.Target] != levels[e.Source]+1 {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "node %q (level %d) cannot be a child of %q (level %d)",
				e.Target, levels[e.Target], e.Source, levels[e.Source])
		}
		parents[e.Target] = e.Source
	}

	if id, ok := findCycle(parents); ok {
		return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "cycle through node %q", id)
	}

	for _, id := range s.PinnedNodeIDs {
		if !ids[id] {
			return taskerr.New(taskerr.ErrCodeInvalidSnapshot, "pinned node %q does not exist", id)
		}
	}
	return nil
}

// findCycle walks parent links from every node and reports a node on a cycle.
func findCycle(parents map[string]string) (string, bool) {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(parents))
	for start := range parents {
		var path []string
		id := start
		for state[id] == unvisited {
			state[id] = active
			path = append(path, id)
			p, ok := parents[id]
			if !ok {
				break
			}
			id = p
		}
		if state[id] == active {
			if _, ok := parents[id]; ok {
				return id, true
			}
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return "", false
}
