package memory

import (
	"context"
	"testing"

	"github.com/gezibash/hookmeta/internal/archive"
	"github.com/gezibash/hookmeta/internal/archive/archivetest"
	"github.com/gezibash/hookmeta/internal/archive/badger"
)

func TestBackend(t *testing.T) {
	archivetest.Run(t, func(t *testing.T) archive.Backend {
		b, err := archive.Open(context.Background(), "memory", nil)
		if err != nil {
			t.Fatal(err)
		}
		return b
	})
}

func TestIgnoresInMemoryOverride(t *testing.T) {
	b, err := NewFactory(context.Background(), archive.Options{badger.KeyInMemory: "false", badger.KeyPath: ""})
	if err != nil {
		t.Fatalf("memory backend should not need a path: %v", err)
	}
	_ = b.Close()
}
