// Package store is the mutation surface over a task map.
//
// A [Store] owns one [graph.Snapshot] and exposes every editing operation
// the presentation layer needs: adding, relabelling, deleting and moving
// tasks, slot reordering, pinning, layout, drag sessions, undo/redo, and
// JSON import/export. Each operation is atomic: it recomputes derived data
// (slots, positions) before returning, and subscribers only ever observe a
// complete snapshot.
//
// # History
//
// Every mutating operation pushes a deep copy of the pre-mutation snapshot
// onto a bounded undo stack (depth 5 by default) and clears the redo stack.
// Loading JSON clears both stacks.
//
// # Stale ids
//
// Operations given an id that does not exist do nothing and report false.
// Only [Store.LoadJSON] and [Store.SaveJSON] return errors.
//
// # Transitions
//
// Adding nodes and running the automatic layout flag a short
// auto-formatting window so the presentation layer can animate the change.
// The window is a keyed [schedule.Scheduler] task: a new trigger replaces
// the pending one instead of racing it. Tests inject [schedule.Manual].
//
// # Concurrency
//
// Operations are synchronous and serialized by a mutex. Subscribers are
// called after the mutex is released, so they may call back into the
// store.
package store
