// Package snapshot builds immutable registry snapshots and publishes them
// behind a single atomically swapped reference.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gezibash/hookmeta/internal/observability"
	"github.com/gezibash/hookmeta/internal/registry"
	"github.com/gezibash/hookmeta/internal/resolver"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Input is everything a snapshot is built from.
type Input struct {
	Descriptors []webhook.Descriptor
	Endpoints   []resolver.Endpoint
	// Origins names where the input came from, for logging only.
	Origins []string
}

// Source produces the input for a build.
type Source interface {
	Load(ctx context.Context) (Input, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Input, error)

func (f SourceFunc) Load(ctx context.Context) (Input, error) { return f(ctx) }

// Snapshot is one validated registry and its resolved endpoints. It is never
// mutated after Build returns.
type Snapshot struct {
	ID        uuid.UUID
	BuiltAt   time.Time
	Origins   []string
	Index     *registry.Index
	Endpoints []resolver.Endpoint
	Bindings  map[string]resolver.BindingSet
}

// Binding returns the resolved binding set for an endpoint ID.
func (s *Snapshot) Binding(endpointID string) (resolver.BindingSet, bool) {
	set, ok := s.Bindings[endpointID]
	return set, ok
}

// Builder validates and resolves inputs into snapshots.
type Builder struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    []registry.Option
}

// NewBuilder returns a builder. Diagnostics go to logger; m may be nil.
func NewBuilder(logger *slog.Logger, m *observability.Metrics, opts ...registry.Option) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger:  logger,
		metrics: m,
		opts:    append([]registry.Option{registry.WithLogger(logger)}, opts...),
	}
}

// Build loads src, validates its descriptors and resolves its endpoints.
func (b *Builder) Build(ctx context.Context, src Source) (_ *Snapshot, err error) {
	op, ctx := observability.StartOperation(ctx, b.logger, b.metrics, "snapshot.build")
	defer func() { op.End(err) }()

	in, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	op.SetAttributes(
		attribute.Int("descriptors", len(in.Descriptors)),
		attribute.Int("endpoints", len(in.Endpoints)),
	)

	idx, err := registry.Build(ctx, in.Descriptors, b.opts...)
	if err != nil {
		b.countDiagnostics(err)
		return nil, err
	}

	bindings, err := resolver.New(idx, b.logger).ResolveAll(in.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	snap := &Snapshot{
		ID:        uuid.New(),
		BuiltAt:   time.Now().UTC(),
		Origins:   in.Origins,
		Index:     idx,
		Endpoints: in.Endpoints,
		Bindings:  bindings,
	}
	op.SetAttributes(attribute.String("snapshot.id", snap.ID.String()))
	return snap, nil
}

func (b *Builder) countDiagnostics(err error) {
	if b.metrics == nil {
		return
	}
	for category, n := range CountFindings(err) {
		b.metrics.DiagnosticsTotal.WithLabelValues(string(category)).Add(float64(n))
	}
}

// CountFindings tallies the validation findings carried by err per category.
func CountFindings(err error) map[webhook.Category]int {
	counts := make(map[webhook.Category]int)
	for _, f := range webhook.Findings(err) {
		counts[f.Category()]++
	}
	return counts
}
