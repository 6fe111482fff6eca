// Package badger provides a BadgerDB-backed snapshot archive.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/gezibash/hookmeta/internal/archive"
)

const (
	KeyPath             = "path"
	KeySyncWrites       = "sync_writes"
	KeyValueLogFileSize = "value_log_file_size"
	KeyInMemory         = "in_memory"
)

const (
	recordPrefix = "record/"
	idPrefix     = "id/"
)

func init() {
	archive.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default options for the BadgerDB backend.
func Defaults() archive.Options {
	return archive.Options{
		KeyPath:             "~/.hookmeta/archive",
		KeySyncWrites:       "false",
		KeyValueLogFileSize: strconv.FormatInt(64<<20, 10),
		KeyInMemory:         "false",
	}
}

// NewFactory opens a BadgerDB archive.
func NewFactory(_ context.Context, opts archive.Options) (archive.Backend, error) {
	r := opts.Read("badger")
	inMemory := r.Bool(KeyInMemory, false)
	syncWrites := r.Bool(KeySyncWrites, false)
	vlogSize := r.Int64(KeyValueLogFileSize, 64<<20)
	if err := r.Err(); err != nil {
		return nil, err
	}

	var bopts badger.Options
	if inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path := r.Path(KeyPath)
		if err := r.Err(); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, &archive.OptionError{Backend: "badger", Key: KeyPath, Value: path, Reason: "failed to create directory", Cause: err}
		}
		bopts = badger.DefaultOptions(path).WithSyncWrites(syncWrites)
		if vlogSize > 0 {
			bopts = bopts.WithValueLogFileSize(vlogSize)
		}
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	slog.Debug("badger archive opened", "in_memory", inMemory, "dir", bopts.Dir)
	return New(db), nil
}

// Backend is a BadgerDB implementation of archive.Backend. Records are keyed
// by their sort key so a forward scan yields the newest first; a second key
// maps each snapshot ID to its sort key.
type Backend struct {
	db     *badger.DB
	closed atomic.Bool
}

// New wraps an open database.
func New(db *badger.DB) *Backend {
	return &Backend{db: db}
}

// Put stores r, dropping a previous record with the same ID.
func (b *Backend) Put(_ context.Context, r *archive.Record) error {
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

	sortKey := archive.SortKey(r)
	err = b.db.Update(func(txn *badger.Txn) error {
		idKey := []byte(idPrefix + r.ID)
		item, err := txn.Get(idKey)
		switch {
		case err == nil:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(old) != sortKey {
				if err := txn.Delete([]byte(recordPrefix + string(old))); err != nil {
					return err
				}
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set([]byte(recordPrefix+sortKey), data); err != nil {
			return err
		}
		return txn.Set(idKey, []byte(sortKey))
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// Get returns the record of a snapshot ID.
func (b *Backend) Get(_ context.Context, id string) (*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idPrefix + id))
		if err != nil {
			return err
		}
		sortKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get([]byte(recordPrefix + string(sortKey)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return archive.Unmarshal(data)
}

// List returns up to limit records, newest first.
func (b *Backend) List(_ context.Context, limit int) ([]*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	var records []*archive.Record
	prefix := []byte(recordPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := archive.Unmarshal(data)
			if err != nil {
				return err
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
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
