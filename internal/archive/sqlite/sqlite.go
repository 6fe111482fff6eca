// Package sqlite provides a SQLite-backed snapshot archive.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/gezibash/hookmeta/internal/archive"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
)

func init() {
	archive.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default options for the SQLite backend.
func Defaults() archive.Options {
	return archive.Options{
		KeyPath:        "~/.hookmeta/archive.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id        TEXT PRIMARY KEY,
    built_at  INTEGER NOT NULL,
    record    BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_built_at ON snapshots(built_at DESC, id ASC);
`

// NewFactory opens a SQLite archive, creating the file and schema as needed.
func NewFactory(ctx context.Context, opts archive.Options) (archive.Backend, error) {
	r := opts.Read("sqlite")
	path := r.Path(KeyPath)
	journalMode := r.String(KeyJournalMode, "wal")
	busyTimeout := r.Int(KeyBusyTimeout, 5000)
	if err := r.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &archive.OptionError{Backend: "sqlite", Key: KeyPath, Value: path, Reason: "failed to create directory", Cause: err}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)", path, journalMode, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	slog.Debug("sqlite archive opened", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of archive.Backend.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

// Put stores r, replacing a previous record with the same ID.
func (b *Backend) Put(ctx context.Context, r *archive.Record) error {
	if b.closed.Load() {
		return archive.ErrClosed
	}
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, built_at, record) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET built_at = excluded.built_at, record = excluded.record`,
		r.ID, r.BuiltAt.UnixNano(), data)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Get returns the record of a snapshot ID.
func (b *Backend) Get(ctx context.Context, id string) (*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT record FROM snapshots WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	return archive.Unmarshal(data)
}

// List returns up to limit records, newest first.
func (b *Backend) List(ctx context.Context, limit int) ([]*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT record FROM snapshots ORDER BY built_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []*archive.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite list: %w", err)
		}
		rec, err := archive.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
