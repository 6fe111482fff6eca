// Package resolver attaches capability values to endpoints from their own
// receiver selector and the validated registry index.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gezibash/hookmeta/internal/registry"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Endpoint is one request-handling endpoint and its receiver selector.
type Endpoint struct {
	ID       string
	Selector webhook.Selector
}

// Resolver binds endpoints against a fixed registry index. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	index  *registry.Index
	logger *slog.Logger
}

// New returns a resolver over idx. A nil idx resolves against an empty
// registry; a nil logger discards output.
func New(idx *registry.Index, logger *slog.Logger) *Resolver {
	if idx == nil {
		idx, _ = registry.Build(context.Background(), nil)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{index: idx, logger: logger}
}

// Resolve computes the binding set for one endpoint.
func (r *Resolver) Resolve(ep Endpoint) (BindingSet, error) {
	sel := ep.Selector
	if sel.BodyType != 0 {
		if reason := sel.BodyType.Validate(); reason != "" {
			return BindingSet{}, fmt.Errorf("endpoint %q: body type %d: %s: %w",
				ep.ID, int(sel.BodyType), reason, webhook.ErrInvalidSelector)
		}
	}

	set := BindingSet{
		EndpointID: ep.ID,
		Receiver:   sel.ReceiverName,
		bindings:   make(map[webhook.Kind]Binding),
	}
	for _, kind := range webhook.Kinds {
		if !kind.Bindable() {
			continue
		}
		if b, ok := r.bind(sel, kind); ok {
			set.bindings[kind] = b
		}
	}

	r.logger.Debug("endpoint resolved",
		"endpoint", ep.ID, "receiver", sel.ReceiverName, "bindings", len(set.bindings))
	return set, nil
}

func (r *Resolver) bind(sel webhook.Selector, kind webhook.Kind) (Binding, bool) {
	if v, ok := sel.Capability(kind); ok {
		return Binding{Kind: kind, Source: SourceSelector, Value: v}, true
	}
	if !kind.Registrable() {
		return Binding{}, false
	}
	if !sel.General() && kind.Policy() == webhook.PolicyUnique {
		d, ok := r.index.Lookup(kind, sel.ReceiverName)
		if !ok {
			return Binding{}, false
		}
		return Binding{Kind: kind, Source: SourceRegistry, Value: d}, true
	}
	list := r.index.List(kind)
	if len(list) == 0 {
		return Binding{}, false
	}
	return Binding{Kind: kind, Source: SourceList, List: list}, true
}

// ResolveAll resolves every endpoint, keyed by endpoint ID. Endpoint IDs must
// be non-empty and distinct.
func (r *Resolver) ResolveAll(endpoints []Endpoint) (map[string]BindingSet, error) {
	out := make(map[string]BindingSet, len(endpoints))
	for i, ep := range endpoints {
		if ep.ID == "" {
			return nil, fmt.Errorf("endpoint %d: missing id: %w", i, webhook.ErrInvalidSelector)
		}
		if _, dup := out[ep.ID]; dup {
			return nil, fmt.Errorf("endpoint %q: %w", ep.ID, webhook.ErrDuplicateEndpoint)
		}
		set, err := r.Resolve(ep)
		if err != nil {
			return nil, err
		}
		out[ep.ID] = set
	}
	return out, nil
}
