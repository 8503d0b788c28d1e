package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLite keeps every snapshot in one table of a local database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, taskerr.New(taskerr.ErrCodeInvalidInput, "sqlite storage needs a file path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr(err, "create database dir")
		}
	}

	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr(err, "open %s", path)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, storageErr(err, "configure %s", path)
		}
	}
	const schema = `CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, storageErr(err, "migrate %s", path)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Read(ctx context.Context, name string) ([]byte, error) {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageErr(err, "read snapshot %q", name)
	}
	return data, nil
}

func (s *SQLite) Write(ctx context.Context, name string, data []byte) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, data, updated_at_unixms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at_unixms = excluded.updated_at_unixms`,
		name, data, time.Now().UnixMilli())
	if err != nil {
		return storageErr(err, "write snapshot %q", name)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr(err, "list snapshots")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	return names, nil
}

func (s *SQLite) Delete(ctx context.Context, name string) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return storageErr(err, "delete snapshot %q", name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(name)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Backend = (*SQLite)(nil)
