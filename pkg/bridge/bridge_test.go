package bridge

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/schedule"
	"github.com/matzehuels/taskmap/pkg/storage"
	"github.com/matzehuels/taskmap/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.WithScheduler(schedule.NewManual()), store.WithLogger(log.New(io.Discard)))
	t.Cleanup(s.Close)
	return s
}

func newShell(t *testing.T, name string) *Shell {
	t.Helper()
	b, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewShell(Static{Name: name}, b)
}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Untitled Batch", "untitled-batch"},
		{"  Q3 / Launch!! ", "q3-launch"},
		{"Ünïcode Plan", "ünïcode-plan"},
		{"...", "untitled"},
		{"", "untitled"},
	}
	for _, tt := range tests {
		if got := SuggestName(tt.in); got != tt.want {
			t.Errorf("SuggestName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	sh := newShell(t, "")

	src := newStore(t)
	root := src.AddNode("", 0)
	src.AddNode(root, 0)
	src.SetBatchTitle("Launch Plan")

	path, err := Save(ctx, sh, src)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != "launch-plan" {
		t.Errorf("Save() path = %q, want suggested name", path)
	}

	dst := newStore(t)
	sh.Dialogs = Static{Name: path}
	if _, err := Load(ctx, sh, dst); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := dst.BatchTitle(); got != "Launch Plan" {
		t.Errorf("loaded title = %q", got)
	}
	if got := len(dst.Snapshot().Nodes); got != 2 {
		t.Errorf("loaded %d nodes, want 2", got)
	}
}

func TestLoadCancelled(t *testing.T) {
	s := newStore(t)
	s.AddNode("", 0)
	_, err := Load(context.Background(), newShell(t, ""), s)
	if !taskerr.IsCancelled(err) {
		t.Fatalf("Load() error = %v, want CANCELLED", err)
	}
	if len(s.Snapshot().Nodes) != 1 {
		t.Error("cancelled load changed the store")
	}
}

func TestLoadMalformedKeepsStore(t *testing.T) {
	ctx := context.Background()
	sh := newShell(t, "broken")
	if err := sh.WriteFile(ctx, "broken", []byte("{oops")); err != nil {
		t.Fatal(err)
	}

	s := newStore(t)
	s.AddNode("", 0)
	if _, err := Load(ctx, sh, s); !taskerr.Is(err, taskerr.ErrCodeInvalidSnapshot) {
		t.Fatalf("Load() error = %v, want INVALID_SNAPSHOT", err)
	}
	if len(s.Snapshot().Nodes) != 1 {
		t.Error("malformed load changed the store")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), newShell(t, "ghost"), newStore(t))
	if !taskerr.IsNotFound(err) {
		t.Errorf("Load() error = %v, want NOT_FOUND", err)
	}
}

func TestDownloadFallback(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dl, err := NewDownload(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	s := newStore(t)
	s.AddNode("", 0)
	name, err := Save(ctx, dl, s)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved := filepath.Join(dir, name+".json")
	if _, err := os.Stat(saved); err != nil {
		t.Fatalf("download not written: %v", err)
	}

	if _, err := Load(ctx, dl, newStore(t)); !taskerr.IsCancelled(err) {
		t.Errorf("Load() without a pick error = %v, want CANCELLED", err)
	}

	dl.Picked = saved
	dst := newStore(t)
	if _, err := Load(ctx, dl, dst); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(dst.Snapshot().Nodes) != 1 {
		t.Error("picked file not loaded")
	}

	dl.Picked = filepath.Join(dir, "gone.json")
	if _, err := Load(ctx, dl, dst); !taskerr.IsNotFound(err) {
		t.Errorf("Load(missing pick) error = %v, want NOT_FOUND", err)
	}
}
