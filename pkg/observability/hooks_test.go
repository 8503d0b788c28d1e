package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type testStoreHooks struct{ NoopStoreHooks }
type testStorageHooks struct{ NoopStorageHooks }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()

	tests := []struct {
		name string
		ok   bool
	}{
		{"store", isType[NoopStoreHooks](Store())},
		{"layout", isType[NoopLayoutHooks](Layout())},
		{"cache", isType[NoopCacheHooks](Cache())},
		{"storage", isType[NoopStorageHooks](Storage())},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s hooks are not the no-op default", tt.name)
		}
	}

	ctx := context.Background()
	Store().OnMutation("add_node", 3, 2)
	Layout().OnLayoutComplete(ctx, "tree", time.Millisecond, nil)
	Cache().OnCacheSet(ctx, "layered", 1024)
	Storage().OnWrite(ctx, "redis", "plan", 0, time.Millisecond, errors.New("down"))
}

func isType[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

func TestSetAndReset(t *testing.T) {
	defer Reset()

	store := &testStoreHooks{}
	SetStoreHooks(store)
	SetStoreHooks(nil)
	if Store() != store {
		t.Error("SetStoreHooks(nil) replaced the registered hooks")
	}

	storage := &testStorageHooks{}
	SetStorageHooks(storage)
	if Storage() != storage {
		t.Error("SetStorageHooks() did not register hooks")
	}

	Reset()
	if Store() == store || Storage() == storage {
		t.Error("Reset() kept custom hooks")
	}
}

func TestInstallRegistersEveryInterface(t *testing.T) {
	defer Reset()

	h := NewLogHooks(log.New(&bytes.Buffer{}))
	Install(h)
	if Store() != h || Layout() != h || Cache() != h || Storage() != h {
		t.Error("Install(LogHooks) did not register all four hook sets")
	}

	partial := &testStoreHooks{}
	Install(partial)
	if Store() != partial {
		t.Error("Install() did not register store hooks")
	}
	if Storage() != h {
		t.Error("Install() of store-only hooks changed storage hooks")
	}
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)
	h := NewLogHooks(l)
	ctx := context.Background()

	tests := []struct {
		name string
		emit func()
		want []string
	}{
		{"mutation", func() { h.OnMutation("add_node", 4, 3) }, []string{"mutation", "op=add_node", "nodes=4"}},
		{"history", func() { h.OnHistory("undo", 2, 1) }, []string{"history", "undo=2", "redo=1"}},
		{"layout ok", func() { h.OnLayoutComplete(ctx, "layered", time.Second, nil) }, []string{"DEBU", "layout done", "engine=layered"}},
		{"layout failed", func() { h.OnLayoutComplete(ctx, "layered", time.Second, errors.New("dot")) }, []string{"WARN", "layout failed", "err=dot"}},
		{"cache miss", func() { h.OnCacheMiss(ctx, "layered") }, []string{"cache miss", "type=layered"}},
		{"storage read", func() { h.OnRead(ctx, "file", "plan", 12, time.Millisecond, nil) }, []string{"storage read", "backend=file", "bytes=12"}},
		{"storage write failed", func() { h.OnWrite(ctx, "redis", "plan", 0, 0, errors.New("down")) }, []string{"WARN", "storage write failed", "err=down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.emit()
			out := buf.String()
			if !strings.Contains(out, "obs") {
				t.Errorf("output %q lacks the obs prefix", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q does not contain %q", out, want)
				}
			}
		})
	}
}
