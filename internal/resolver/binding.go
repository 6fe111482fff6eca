package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Source records where a bound value came from.
type Source int

const (
	// SourceSelector values are implemented by the endpoint's own selector.
	SourceSelector Source = iota + 1
	// SourceRegistry values are the single indexed descriptor for the
	// selector's receiver.
	SourceRegistry
	// SourceList values are every registered descriptor of the kind, left
	// for request-time filtering.
	SourceList
)

func (s Source) String() string {
	switch s {
	case SourceSelector:
		return "selector"
	case SourceRegistry:
		return "registry"
	case SourceList:
		return "list"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Sources lists every binding source in declaration order.
var Sources = []Source{SourceSelector, SourceRegistry, SourceList}

// Binding is the value attached to an endpoint for one capability kind.
// Value is set for SourceSelector and SourceRegistry, List for SourceList.
type Binding struct {
	Kind   webhook.Kind
	Source Source
	Value  any
	List   []webhook.Descriptor
}

// Receivers returns the receiver names the binding covers.
func (b Binding) Receivers() []string {
	switch b.Source {
	case SourceList:
		names := make([]string, len(b.List))
		for i, d := range b.List {
			names[i] = d.ReceiverName()
		}
		return names
	case SourceRegistry:
		if d, ok := b.Value.(webhook.Descriptor); ok {
			return []string{d.ReceiverName()}
		}
	}
	return nil
}

// BindingSet is the immutable result of resolving one endpoint.
type BindingSet struct {
	EndpointID string
	Receiver   string
	bindings   map[webhook.Kind]Binding
}

// Get returns the binding for kind.
func (s BindingSet) Get(kind webhook.Kind) (Binding, bool) {
	b, ok := s.bindings[kind]
	return b, ok
}

// Descriptor returns the single registry descriptor bound for kind.
func (s BindingSet) Descriptor(kind webhook.Kind) (webhook.Descriptor, bool) {
	b, ok := s.bindings[kind]
	if !ok || b.Source != SourceRegistry {
		return nil, false
	}
	d, ok := b.Value.(webhook.Descriptor)
	return d, ok
}

// List returns a copy of the descriptor list bound for kind.
func (s BindingSet) List(kind webhook.Kind) []webhook.Descriptor {
	b, ok := s.bindings[kind]
	if !ok || b.Source != SourceList {
		return nil
	}
	return slices.Clone(b.List)
}

// Kinds returns the bound kinds in kind order.
func (s BindingSet) Kinds() []webhook.Kind {
	kinds := make([]webhook.Kind, 0, len(s.bindings))
	for k := range s.bindings {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Len returns the number of bound kinds.
func (s BindingSet) Len() int {
	return len(s.bindings)
}

// Select picks the first listed descriptor of kind applicable to receiver,
// in registration order. It is the request-time filter for list bindings.
func (s BindingSet) Select(kind webhook.Kind, receiver string) (webhook.Descriptor, bool) {
	b, ok := s.bindings[kind]
	if !ok {
		return nil, false
	}
	switch b.Source {
	case SourceList:
		for _, d := range b.List {
			if d.IsApplicable(receiver) {
				return d, true
			}
		}
	case SourceRegistry:
		if d, ok := b.Value.(webhook.Descriptor); ok && d.IsApplicable(receiver) {
			return d, true
		}
	}
	return nil, false
}

// CountBySource tallies the bindings of every set per source.
func CountBySource(sets map[string]BindingSet) map[Source]int {
	counts := make(map[Source]int, len(Sources))
	for _, set := range sets {
		for _, b := range set.bindings {
			counts[b.Source]++
		}
	}
	return counts
}

// Entry is a printable view of one binding.
type Entry struct {
	Kind      string   `json:"kind"`
	Source    string   `json:"source"`
	Receivers []string `json:"receivers,omitempty"`
	Value     string   `json:"value,omitempty"`
}

// Entries returns the set's bindings as printable entries in kind order.
func (s BindingSet) Entries() []Entry {
	kinds := s.Kinds()
	out := make([]Entry, 0, len(kinds))
	for _, k := range kinds {
		b := s.bindings[k]
		out = append(out, Entry{
			Kind:      k.String(),
			Source:    b.Source.String(),
			Receivers: b.Receivers(),
			Value:     describe(b.Value),
		})
	}
	return out
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case webhook.BodyType:
		return v.String()
	case webhook.EventSelector:
		return "event=" + v.EventName
	case webhook.BindingMetadata:
		names := make([]string, len(v.Parameters))
		for i, p := range v.Parameters {
			names[i] = fmt.Sprintf("%s<-%s:%s", p.Name, p.Source, p.Key)
		}
		return "parameters=" + strings.Join(names, ",")
	case webhook.BodyTypeMetadata:
		return v.BodyType.String()
	case webhook.EventMetadata:
		var parts []string
		if v.HeaderName != "" {
			parts = append(parts, "header="+v.HeaderName)
		}
		if v.QueryParameterName != "" {
			parts = append(parts, "query="+v.QueryParameterName)
		}
		if v.ConstantValue != "" {
			parts = append(parts, "constant="+v.ConstantValue)
		}
		if v.PingEventName != "" {
			parts = append(parts, "ping="+v.PingEventName)
		}
		return strings.Join(parts, " ")
	case webhook.PingRequestMetadata:
		return "ping=" + v.PingEventName
	case webhook.VerifyCodeMetadata:
		return "parameter=" + v.CodeParameterName
	case webhook.GetHeadRequestMetadata:
		return fmt.Sprintf("allow_head=%t secret=%d..%d", v.AllowHead, v.SecretKeyMinLength, v.SecretKeyMaxLength)
	case webhook.Descriptor:
		return "receiver=" + v.ReceiverName()
	default:
		return fmt.Sprint(v)
	}
}
