// Package archive keeps a history of published snapshots in a pluggable
// storage backend. Backends register themselves by name from their init
// functions; import the ones a binary should offer.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates no record exists for the requested snapshot ID.
	ErrNotFound = errors.New("snapshot record not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("archive closed")
)

// Record is the archived summary of one published snapshot.
type Record struct {
	ID          string    `json:"id"`
	BuiltAt     time.Time `json:"built_at"`
	Origins     []string  `json:"origins"`
	Receivers   int       `json:"receivers"`
	Descriptors int       `json:"descriptors"`
	Endpoints   int       `json:"endpoints"`
	// View is the snapshot's full JSON rendering.
	View json.RawMessage `json:"view,omitempty"`
}

// Validate reports whether r can be stored.
func (r *Record) Validate() error {
	if r == nil || r.ID == "" {
		return errors.New("record has no id")
	}
	if r.BuiltAt.IsZero() {
		return fmt.Errorf("record %s has no build time", r.ID)
	}
	return nil
}

// Marshal encodes r for storage.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a stored record.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}

// SortKey orders records newest first under a plain byte comparison.
// Records built in the same nanosecond fall back to ID order.
func SortKey(r *Record) string {
	return fmt.Sprintf("%016x-%s", uint64(math.MaxInt64-r.BuiltAt.UnixNano()), r.ID)
}

// Backend stores snapshot records. All implementations must be safe for
// concurrent use.
type Backend interface {
	// Put stores r, replacing any record with the same ID.
	Put(ctx context.Context, r *Record) error
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit records, newest first. A limit of zero or
	// less returns every record.
	List(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

// Factory opens a backend from its options.
type Factory func(ctx context.Context, opts Options) (Backend, error)

// DefaultsFunc returns the default options of a backend.
type DefaultsFunc func() Options

type registration struct {
	factory  Factory
	defaults DefaultsFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// Register makes a backend available under name.
// Panics if a backend with the same name is already registered.
func Register(name string, factory Factory, defaults DefaultsFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("archive: backend %q already registered", name))
	}
	registry[name] = registration{factory: factory, defaults: defaults}
}

// Open creates the named backend. opts are layered over the backend's
// defaults.
func Open(ctx context.Context, name string, opts Options) (Backend, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("archive: unknown backend %q (registered: %v)", name, Backends())
	}

	merged := opts
	if reg.defaults != nil {
		merged = reg.defaults().Merge(opts)
	}
	b, err := reg.factory(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", name, err)
	}
	return b, nil
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the default options of the named backend, or nil.
func Defaults(name string) Options {
	registryMu.RLock()
	defer registryMu.RUnlock()

	reg, ok := registry[name]
	if !ok || reg.defaults == nil {
		return nil
	}
	return reg.defaults()
}
