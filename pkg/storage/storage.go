// Package storage persists named snapshot documents.
//
// A [Backend] stores opaque JSON payloads under validated names. Four
// backends are provided and chosen by URL in [Open]:
//
//	""                  file backend in the default data directory
//	/path, file:///path file backend rooted at a directory
//	sqlite:///path.db   single-file SQLite database (pure Go driver)
//	redis://host:6379/0 Redis, one key per snapshot
//	mongodb://host/db   MongoDB, one document per snapshot
//
// Missing snapshots are NOT_FOUND errors, invalid names INVALID_NAME, and
// every other backend failure STORAGE_ERROR. Reads and writes are reported
// to [observability.Storage].
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/observability"
)

// Backend stores snapshot payloads by name.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	// List returns every stored name, sorted.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open connects to the backend described by url.
func Open(ctx context.Context, url string) (Backend, error) {
	kind, b, err := open(ctx, url)
	if err != nil {
		return nil, err
	}
	return &observed{Backend: b, kind: kind}, nil
}

func open(ctx context.Context, url string) (string, Backend, error) {
	switch {
	case url == "":
		dir, err := DefaultDir()
		if err != nil {
			return "", nil, err
		}
		b, err := NewFile(dir)
		return "file", b, err
	case strings.HasPrefix(url, "file://"):
		b, err := NewFile(strings.TrimPrefix(url, "file://"))
		return "file", b, err
	case strings.HasPrefix(url, "sqlite://"):
		b, err := NewSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
		return "sqlite", b, err
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		b, err := NewRedis(ctx, url)
		return "redis", b, err
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		b, err := NewMongo(ctx, url)
		return "mongo", b, err
	case strings.Contains(url, "://"):
		return "", nil, taskerr.New(taskerr.ErrCodeUnsupported, "unsupported storage URL %q", url)
	default:
		b, err := NewFile(url)
		return "file", b, err
	}
}

// DefaultDir is $XDG_DATA_HOME/taskmap/snapshots, falling back to
// ~/.local/share/taskmap/snapshots.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "taskmap", "snapshots"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", taskerr.Wrap(taskerr.ErrCodeStorage, err, "locate home directory")
	}
	return filepath.Join(home, ".local", "share", "taskmap", "snapshots"), nil
}

func notFound(name string) error {
	return taskerr.New(taskerr.ErrCodeNotFound, "snapshot %q not found", name)
}

func storageErr(err error, format string, args ...any) error {
	return taskerr.Wrap(taskerr.ErrCodeStorage, err, format, args...)
}

// observed reports reads and writes to the storage hooks.
type observed struct {
	Backend
	kind string
}

func (o *observed) Read(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := o.Backend.Read(ctx, name)
	observability.Storage().OnRead(ctx, o.kind, name, len(data), time.Since(start), err)
	return data, err
}

func (o *observed) Write(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := o.Backend.Write(ctx, name, data)
	observability.Storage().OnWrite(ctx, o.kind, name, len(data), time.Since(start), err)
	return err
}
