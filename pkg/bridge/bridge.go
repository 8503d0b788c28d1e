// Package bridge connects a [store.Store] to a persistence medium.
//
// A [Bridge] is the desktop-shell contract: a save dialog, an open dialog,
// and file read/write. [Save] and [Load] drive it: ask for a location,
// then move the store's JSON to or from it. A dismissed dialog surfaces as
// a CANCELLED error and leaves everything untouched.
//
// [Shell] pairs any [Dialogs] with a [storage.Backend]. [Static] answers
// dialogs with preset names for headless use. [Download] is the fallback
// when no shell exists: saves land in a downloads directory and loads read
// a file the user picked.
package bridge

import (
	"context"
	"os"
	"strings"
	"unicode"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/storage"
	"github.com/matzehuels/taskmap/pkg/store"
)

// Dialogs asks the user where to save or what to open.
type Dialogs interface {
	// SaveDialog returns the chosen location. suggested is a default name.
	SaveDialog(ctx context.Context, suggested string) (string, error)
	// OpenDialog returns one or more chosen locations.
	OpenDialog(ctx context.Context) ([]string, error)
}

// Files reads and writes whole payloads at a location.
type Files interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Bridge is the full persistence contract.
type Bridge interface {
	Dialogs
	Files
}

// Cancelled is returned by dialogs the user dismissed.
func Cancelled() error {
	return taskerr.New(taskerr.ErrCodeCancelled, "dialog cancelled")
}

// Save writes the store's snapshot to a location chosen through b and
// returns that location.
func Save(ctx context.Context, b Bridge, s *store.Store) (string, error) {
	path, err := b.SaveDialog(ctx, SuggestName(s.BatchTitle()))
	if err != nil {
		return "", err
	}
	data, err := s.SaveJSON()
	if err != nil {
		return "", err
	}
	if err := b.WriteFile(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load replaces the store's contents with the first location chosen
// through b and returns that location. Malformed data leaves the store as
// it was.
func Load(ctx context.Context, b Bridge, s *store.Store) (string, error) {
	paths, err := b.OpenDialog(ctx)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", Cancelled()
	}
	data, err := b.ReadFile(ctx, paths[0])
	if err != nil {
		return "", err
	}
	if err := s.LoadJSON(data); err != nil {
		return "", err
	}
	return paths[0], nil
}

// SuggestName turns a batch title into a storage-safe name:
// lower case, runs of other characters collapsed to '-'.
func SuggestName(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		return "untitled"
	}
	return name
}

// =============================================================================
// Shell
// =============================================================================

// Shell stores payloads in a storage backend; locations are snapshot names.
type Shell struct {
	Dialogs
	Backend storage.Backend
}

// NewShell pairs dialogs with a backend.
func NewShell(d Dialogs, b storage.Backend) *Shell {
	return &Shell{Dialogs: d, Backend: b}
}

func (s *Shell) WriteFile(ctx context.Context, name string, data []byte) error {
	return s.Backend.Write(ctx, name, data)
}

func (s *Shell) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return s.Backend.Read(ctx, name)
}

// =============================================================================
// Static
// =============================================================================

// Static answers every dialog with a fixed name. An empty Name uses the
// suggestion on save and cancels on open.
type Static struct {
	Name string
}

func (d Static) SaveDialog(_ context.Context, suggested string) (string, error) {
	if d.Name != "" {
		return d.Name, nil
	}
	return suggested, nil
}

func (d Static) OpenDialog(context.Context) ([]string, error) {
	if d.Name == "" {
		return nil, Cancelled()
	}
	return []string{d.Name}, nil
}

// =============================================================================
// Download
// =============================================================================

// Download is the shell-less fallback. Saves go straight to Dir under the
// suggested name, like a browser download; loads read Picked, a path the
// user selected. An empty Picked cancels the load.
type Download struct {
	files  *storage.File
	Picked string
}

// NewDownload prepares the downloads directory.
func NewDownload(dir, picked string) (*Download, error) {
	f, err := storage.NewFile(dir)
	if err != nil {
		return nil, err
	}
	return &Download{files: f, Picked: picked}, nil
}

func (d *Download) SaveDialog(_ context.Context, suggested string) (string, error) {
	return suggested, nil
}

func (d *Download) OpenDialog(context.Context) ([]string, error) {
	if d.Picked == "" {
		return nil, Cancelled()
	}
	return []string{d.Picked}, nil
}

func (d *Download) WriteFile(ctx context.Context, name string, data []byte) error {
	return d.files.Write(ctx, name, data)
}

// ReadFile reads any local path, since picked files can live anywhere.
func (d *Download) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, taskerr.New(taskerr.ErrCodeNotFound, "file %s not found", path)
	}
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeStorage, err, "read %s", path)
	}
	return data, nil
}

var (
	_ Bridge = (*Shell)(nil)
	_ Bridge = (*Download)(nil)
)
