package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gezibash/hookmeta/internal/observability"
	"github.com/gezibash/hookmeta/internal/resolver"
)

// Store publishes the current snapshot. Readers never block; reloads are
// serialized and only a successful build replaces the published snapshot.
type Store struct {
	builder *Builder
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	current   atomic.Pointer[Snapshot]
	lastErr   atomic.Pointer[reloadError]
	listeners []PublishFunc
}

// PublishFunc is called with every snapshot the store publishes.
type PublishFunc func(ctx context.Context, snap *Snapshot)

type reloadError struct{ err error }

// NewStore returns an empty store that builds from src.
func NewStore(b *Builder, src Source) *Store {
	return &Store{builder: b, source: src, logger: b.logger, metrics: b.metrics}
}

// OnPublish registers fn to run after each successful reload, in the order
// registered. Listeners run under the reload lock, so they see snapshots in
// publish order and must not call Reload.
func (s *Store) OnPublish(fn PublishFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Current returns the published snapshot, or nil before the first
// successful Reload.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// LastError returns the error of the most recent reload, nil if it succeeded.
func (s *Store) LastError() error {
	if e := s.lastErr.Load(); e != nil {
		return e.err
	}
	return nil
}

// Reload builds a new snapshot and swaps it in. On failure the previous
// snapshot stays published and the error is returned.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.builder.Build(ctx, s.source)
	if err != nil {
		s.lastErr.Store(&reloadError{err: err})
		s.recordReload("error")
		if prev := s.current.Load(); prev != nil {
			s.logger.WarnContext(ctx, "reload failed, keeping previous snapshot",
				"snapshot", prev.ID.String(), "error", err)
		}
		return nil, err
	}

	prev := s.current.Swap(snap)
	s.lastErr.Store(nil)
	s.recordReload("ok")
	s.publishGauges(snap)

	attrs := []any{"snapshot", snap.ID.String(), "descriptors", snap.Index.Len(), "endpoints", len(snap.Bindings)}
	if prev != nil {
		attrs = append(attrs, "previous", prev.ID.String())
	}
	s.logger.InfoContext(ctx, "snapshot published", attrs...)

	for _, fn := range s.listeners {
		fn(ctx, snap)
	}
	return snap, nil
}

func (s *Store) recordReload(status string) {
	if s.metrics != nil {
		s.metrics.ReloadsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Store) publishGauges(snap *Snapshot) {
	if s.metrics == nil {
		return
	}
	s.metrics.Descriptors.Reset()
	for _, kind := range snap.Index.Kinds() {
		s.metrics.Descriptors.WithLabelValues(kind.String()).Set(float64(len(snap.Index.List(kind))))
	}
	counts := resolver.CountBySource(snap.Bindings)
	for _, src := range resolver.Sources {
		s.metrics.Bindings.WithLabelValues(src.String()).Set(float64(counts[src]))
	}
}
