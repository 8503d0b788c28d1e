package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/taskmap/pkg/observability"
)

const entryExt = ".json"

// FileCache stores one JSON envelope per entry under a directory, fanned out
// into subdirectories by the first two hash characters. Corrupt or expired
// entries read as misses and are removed.
type FileCache struct {
	dir string
}

// NewFileCache creates dir if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

type fileEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, hit, err := c.load(c.path(key))
	switch {
	case err != nil:
	case hit:
		observability.Cache().OnCacheHit(ctx, keyType(key))
	default:
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
	return data, hit, err
}

// load reads one entry file, removing it when corrupt or stale.
func (c *FileCache) load(path string) ([]byte, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var e fileEntry
	if json.Unmarshal(raw, &e) != nil || expired(e.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	raw, err := json.Marshal(fileEntry{Data: data, ExpiresAt: expiry(ttl)})
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// Readers must never see half an entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error {
	return nil
}

// Stats describes the entries on disk.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
}

// Stats walks the cache directory. Unreadable entries are skipped.
func (c *FileCache) Stats() (Stats, error) {
	var st Stats
	err := c.walk(func(path string, info fs.FileInfo) {
		st.Entries++
		st.Bytes += info.Size()
		if raw, err := os.ReadFile(path); err == nil {
			var e fileEntry
			if json.Unmarshal(raw, &e) != nil || expired(e.ExpiresAt) {
				st.Expired++
			}
		}
	})
	return st, err
}

// Clear removes every entry and the emptied fan-out directories, returning
// how many entries went. With expiredOnly set, fresh entries stay.
func (c *FileCache) Clear(expiredOnly bool) (int, error) {
	removed := 0
	err := c.walk(func(path string, _ fs.FileInfo) {
		if expiredOnly {
			if _, fresh, err := c.load(path); err != nil || fresh {
				return
			}
			removed++ // load already removed it
			return
		}
		if os.Remove(path) == nil {
			removed++
		}
	})
	if err != nil {
		return removed, err
	}

	subdirs, _ := os.ReadDir(c.dir)
	for _, d := range subdirs {
		if d.IsDir() {
			_ = os.Remove(filepath.Join(c.dir, d.Name())) // fails while non-empty
		}
	}
	return removed, nil
}

// walk calls fn for every entry file below the cache directory.
func (c *FileCache) walk(fn func(path string, info fs.FileInfo)) error {
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, entryExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(path, info)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+entryExt)
}

// keyType is the prefix before the first colon, used to label hook events.
func keyType(key string) string {
	if prefix, _, ok := strings.Cut(key, ":"); ok && prefix != "" {
		return prefix
	}
	return "other"
}

var _ Cache = (*FileCache)(nil)
