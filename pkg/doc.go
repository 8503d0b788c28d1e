// Package pkg provides the core libraries for taskmap, a to-do map that
// shows tasks as nodes in a hierarchy and keeps them laid out as they are
// edited.
//
// # Overview
//
// The pkg directory is organized into four areas:
//
//  1. [graph] - Node, edge and snapshot types and the JSON snapshot format
//  2. [layout] - The tree layout engine and the Graphviz layered mode
//  3. [store] - The graph state machine: edits, undo/redo, pins, events
//  4. [storage], [bridge], [cache] - Persistence and caching
//
// Supporting packages: [config] (TOML settings), [errors] (coded errors and
// validation), [schedule] (cancellable timers), [observability] (hooks),
// and [buildinfo].
//
// # Architecture
//
// An edit flows through the store like this:
//
//	presentation (CLI, TUI, HTTP API)
//	         ↓
//	    [store] operation (validate, push history, mutate)
//	         ↓
//	    [layout] Compute (place subtrees, restore preserved positions)
//	         ↓
//	    subscribers (EventChanged, EventAutoFormat, EventEdgeRefresh)
//
// Persistence goes the other way through [bridge], which asks a dialog for a
// name and moves the snapshot JSON to or from a [storage] backend.
//
// # Quick Start
//
//	s := store.New()
//	defer s.Close()
//
//	root := s.AddNode("", graph.LevelRoot)
//	s.UpdateNodeLabel(root, "Launch")
//	todo := s.AddNode(s.AddNode(root, 0), 0)
//	s.PinNode(todo)
//
//	data, _ := s.SaveJSON()
//
// # Storage
//
// Snapshots are stored by name. [storage.Open] picks a backend from a URL:
// a plain path or file:// for a directory of JSON files, sqlite://,
// redis:// and mongodb://.
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/graph
// [layout]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/layout
// [store]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/store
// [storage]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/storage
// [storage.Open]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/storage#Open
// [bridge]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/bridge
// [cache]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/errors
// [schedule]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/schedule
// [observability]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/taskmap/pkg/buildinfo
package pkg
