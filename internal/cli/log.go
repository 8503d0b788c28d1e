// Package cli implements the taskmap command-line interface.
//
// Every command works on one named snapshot (--name, default "default") in
// one storage backend (--storage, default the local data directory). Edits
// load the snapshot into a store, apply one operation and save it back, so
// each invocation is a complete session.
//
// # Commands
//
//   - new, add, rename, done, title, move, swap, rm: edit the map
//   - pin: manage the pinned list
//   - show, layout, export: inspect, lay out and render the map
//   - tui: edit interactively
//   - serve: expose the store over a local JSON API
//   - list, delete, push, pull, import, download: manage snapshots
//   - config, cache: inspect configuration and the layered layout cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging; the default
// level comes from the config file.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskmap/pkg/store"
)

// newLogger creates a logger writing to w at level, timestamped as
// "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Layered layout computed (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// traceEvents logs every store notification at debug level until the
// returned function is called.
func traceEvents(l *log.Logger, s *store.Store) func() {
	return s.Subscribe(func(e store.Event) {
		switch e.Kind {
		case store.EventAutoFormat:
			l.Debug("store event", "kind", e.Kind, "formatting", e.AutoFormatting)
		case store.EventEdgeRefresh:
			l.Debug("store event", "kind", e.Kind, "node", e.NodeID)
		default:
			l.Debug("store event", "kind", e.Kind, "op", e.Op)
		}
	})
}
