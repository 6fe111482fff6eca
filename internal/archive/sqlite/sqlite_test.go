package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gezibash/hookmeta/internal/archive"
	"github.com/gezibash/hookmeta/internal/archive/archivetest"
)

func TestBackend(t *testing.T) {
	archivetest.Run(t, func(t *testing.T) archive.Backend {
		path := filepath.Join(t.TempDir(), "nested", "archive.db")
		b, err := NewFactory(context.Background(), archive.Options{KeyPath: path})
		if err != nil {
			t.Fatal(err)
		}
		return b
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	b, err := archive.Open(ctx, "sqlite", archive.Options{KeyPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, archivetest.NewRecord("a", 1)); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b, err = archive.Open(ctx, "sqlite", archive.Options{KeyPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close() //nolint:errcheck
	recs, err := b.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "a" {
		t.Errorf("List after reopen = %v", recs)
	}
}

func TestFactoryRejectsBadOption(t *testing.T) {
	_, err := NewFactory(context.Background(), archive.Options{
		KeyPath:        filepath.Join(t.TempDir(), "archive.db"),
		KeyBusyTimeout: "soon",
	})
	var optErr *archive.OptionError
	if !errors.As(err, &optErr) || optErr.Key != KeyBusyTimeout {
		t.Errorf("err = %v, want OptionError for %s", err, KeyBusyTimeout)
	}
}
