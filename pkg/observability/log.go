package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug records to a
// logger. Failed layouts and storage calls are logged as warnings.
type LogHooks struct {
	l *log.Logger
}

// NewLogHooks returns hooks that log through l with an "obs" prefix.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{l: l.WithPrefix("obs")}
}

func (h *LogHooks) OnMutation(op string, nodeCount, edgeCount int) {
	h.l.Debug("mutation", "op", op, "nodes", nodeCount, "edges", edgeCount)
}

func (h *LogHooks) OnHistory(op string, undoDepth, redoDepth int) {
	h.l.Debug("history", "op", op, "undo", undoDepth, "redo", redoDepth)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, engine string, nodeCount int) {
	h.l.Debug("layout start", "engine", engine, "nodes", nodeCount)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, engine string, d time.Duration, err error) {
	if err != nil {
		h.l.Warn("layout failed", "engine", engine, "took", d, "err", err)
		return
	}
	h.l.Debug("layout done", "engine", engine, "took", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.l.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.l.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.l.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRead(_ context.Context, backend, name string, size int, d time.Duration, err error) {
	h.storage("read", backend, name, size, d, err)
}

func (h *LogHooks) OnWrite(_ context.Context, backend, name string, size int, d time.Duration, err error) {
	h.storage("write", backend, name, size, d, err)
}

func (h *LogHooks) storage(op, backend, name string, size int, d time.Duration, err error) {
	if err != nil {
		h.l.Warn("storage "+op+" failed", "backend", backend, "name", name, "took", d, "err", err)
		return
	}
	h.l.Debug("storage "+op, "backend", backend, "name", name, "bytes", size, "took", d)
}
