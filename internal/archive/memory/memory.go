// Package memory provides an in-memory snapshot archive for tests and for
// serve instances that only need history while they run.
package memory

import (
	"context"

	"github.com/gezibash/hookmeta/internal/archive"
	"github.com/gezibash/hookmeta/internal/archive/badger"
)

func init() {
	archive.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default options for the memory backend.
func Defaults() archive.Options {
	return archive.Options{badger.KeyInMemory: "true"}
}

// NewFactory opens BadgerDB in in-memory mode, whatever the options say.
func NewFactory(ctx context.Context, opts archive.Options) (archive.Backend, error) {
	return badger.NewFactory(ctx, opts.Merge(archive.Options{badger.KeyInMemory: "true"}))
}
