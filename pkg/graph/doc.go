// Package graph defines the task map model and its snapshot format.
//
// A map is a forest of tasks on three levels: root tasks (level 0),
// subtasks (level 1) and leaf todos (level 2). Every child sits exactly one
// level below its parent, siblings are ordered by their slot, and each node
// has at most one incoming edge.
//
// # Core Types
//
//   - [Node], [NodeData], [Position]: a task and its persisted payload
//   - [Edge]: a directed parent→child relation
//   - [Snapshot]: nodes, edges, pinned ids and batch title; the unit of
//     persistence and of undo/redo
//   - [Index]: parent/child adjacency kept alongside the edge list
//
// # Snapshot Serialization
//
// Snapshots use a flat JSON format:
//
//	{
//	  "nodes": [{"id": "a", "type": "task", "position": {"x": 0, "y": 0},
//	             "data": {"label": "Ship v1", "level": 0, "slot": 0}}],
//	  "edges": [],
//	  "pinnedNodeIds": [],
//	  "batchTitle": "Sprint 12"
//	}
//
// Common operations:
//
//	s, _ := graph.ReadSnapshotFile("plan.json")
//	graph.WriteSnapshotFile(s, "plan.json")
//	data, _ := graph.MarshalSnapshot(s)
//	parsed, _ := graph.UnmarshalSnapshot(data)
//
// Decoding validates the structure (see [Validate]) and fills defaults for
// fields older snapshots lack.
//
// # Concurrency
//
// Snapshot values are plain data. Use [Snapshot.Clone] before handing one to
// another goroutine. [Index] is not safe for concurrent use.
package graph
