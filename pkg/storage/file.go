package storage

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

const fileExt = ".json"

// File stores each snapshot as <dir>/<name>.json.
type File struct {
	mu  sync.RWMutex
	dir string
}

// NewFile creates the directory if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, taskerr.New(taskerr.ErrCodeInvalidInput, "file storage needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr(err, "create storage dir")
	}
	return &File{dir: dir}, nil
}

// Dir returns the storage directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, name+fileExt)
}

func (f *File) Read(ctx context.Context, name string) ([]byte, error) {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageErr(err, "read snapshot %q", name)
	}
	return data, nil
}

func (f *File) Write(ctx context.Context, name string, data []byte) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return storageErr(err, "write snapshot %q", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storageErr(err, "write snapshot %q", name)
	}
	return nil
}

func (f *File) List(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	slices.Sort(names)
	return names, nil
}

func (f *File) Delete(ctx context.Context, name string) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(name))
	if os.IsNotExist(err) {
		return notFound(name)
	}
	if err != nil {
		return storageErr(err, "delete snapshot %q", name)
	}
	return nil
}

func (f *File) Close() error { return nil }

var _ Backend = (*File)(nil)
