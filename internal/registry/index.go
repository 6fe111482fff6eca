package registry

import (
	"slices"
	"sort"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Index is the read-only receiver lookup built from a validated descriptor
// collection. It is never mutated after Build returns.
type Index struct {
	unique    map[webhook.Kind]map[string]webhook.Descriptor
	byKind    map[webhook.Kind][]webhook.Descriptor
	receivers []string
	total     int
}

func newIndex(descriptors []webhook.Descriptor) *Index {
	idx := &Index{
		unique: make(map[webhook.Kind]map[string]webhook.Descriptor),
		byKind: make(map[webhook.Kind][]webhook.Descriptor),
		total:  len(descriptors),
	}
	seen := make(map[string]struct{})
	for _, d := range descriptors {
		kind := d.Kind()
		name := d.ReceiverName()
		idx.byKind[kind] = append(idx.byKind[kind], d)
		if kind.Policy() == webhook.PolicyUnique {
			byName, ok := idx.unique[kind]
			if !ok {
				byName = make(map[string]webhook.Descriptor)
				idx.unique[kind] = byName
			}
			byName[name] = d
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			idx.receivers = append(idx.receivers, name)
		}
	}
	sort.Strings(idx.receivers)
	return idx
}

// Lookup returns the descriptor of a unique kind registered for receiver.
func (i *Index) Lookup(kind webhook.Kind, receiver string) (webhook.Descriptor, bool) {
	d, ok := i.unique[kind][receiver]
	return d, ok
}

// List returns every descriptor of kind in registration order.
func (i *Index) List(kind webhook.Kind) []webhook.Descriptor {
	return slices.Clone(i.byKind[kind])
}

// ListFor returns the descriptors of kind registered under receiver, in
// registration order.
func (i *Index) ListFor(kind webhook.Kind, receiver string) []webhook.Descriptor {
	var out []webhook.Descriptor
	for _, d := range i.byKind[kind] {
		if d.ReceiverName() == receiver {
			out = append(out, d)
		}
	}
	return out
}

// Receivers returns the sorted receiver names with at least one descriptor.
func (i *Index) Receivers() []string {
	return slices.Clone(i.receivers)
}

// Kinds returns the kinds with at least one descriptor, in kind order.
func (i *Index) Kinds() []webhook.Kind {
	var kinds []webhook.Kind
	for _, k := range webhook.Kinds {
		if len(i.byKind[k]) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Len returns the number of indexed descriptors.
func (i *Index) Len() int {
	return i.total
}
