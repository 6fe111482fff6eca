// Package webhook defines the capability descriptors that receiver plugins
// register to describe how callback requests for a named receiver are bound,
// parsed and routed.
//
// Descriptors are immutable values. Every descriptor names exactly one
// capability Kind and one receiver; a plugin that offers several capabilities
// registers one descriptor per capability.
package webhook

import "fmt"

// Kind identifies one capability a descriptor or selector provides.
type Kind int

const (
	KindBinding Kind = iota + 1
	KindBodyType
	KindEventFromBody
	KindEvent
	KindEventSelector
	KindGetHeadRequest
	KindPingRequest
	KindVerifyCode
	// KindLegacyBodyType marks descriptors that declare a body type without the
	// full body-type contract. Registering one is always a configuration error.
	KindLegacyBodyType
)

// Kinds lists every capability kind in declaration order.
var Kinds = []Kind{
	KindBinding,
	KindBodyType,
	KindEventFromBody,
	KindEvent,
	KindEventSelector,
	KindGetHeadRequest,
	KindPingRequest,
	KindVerifyCode,
	KindLegacyBodyType,
}

// Policy is the cardinality policy of a capability kind.
type Policy int

const (
	// PolicyUnique allows at most one descriptor per receiver name.
	PolicyUnique Policy = iota + 1
	// PolicyFilterable allows any number of descriptors; request handling
	// picks among them with IsApplicable.
	PolicyFilterable
)

func (p Policy) String() string {
	switch p {
	case PolicyUnique:
		return "unique"
	case PolicyFilterable:
		return "filterable"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func (k Kind) String() string {
	switch k {
	case KindBinding:
		return "binding"
	case KindBodyType:
		return "body-type"
	case KindEventFromBody:
		return "event-from-body"
	case KindEvent:
		return "event"
	case KindEventSelector:
		return "event-selector"
	case KindGetHeadRequest:
		return "get-head-request"
	case KindPingRequest:
		return "ping-request"
	case KindVerifyCode:
		return "verify-code"
	case KindLegacyBodyType:
		return "legacy-body-type"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the String form of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown capability kind %q", s)
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindBinding && k <= KindLegacyBodyType
}

// Policy returns the cardinality policy of the kind.
func (k Kind) Policy() Policy {
	switch k {
	case KindEventFromBody:
		return PolicyFilterable
	default:
		return PolicyUnique
	}
}

// Registrable reports whether descriptors of this kind are accepted into the
// registry. Event selectors only ever come from an endpoint's own selector.
func (k Kind) Registrable() bool {
	switch k {
	case KindEventSelector, KindLegacyBodyType:
		return false
	default:
		return k.Valid()
	}
}

// Bindable reports whether the resolver attaches values of this kind to
// endpoints.
func (k Kind) Bindable() bool {
	return k.Valid() && k != KindLegacyBodyType
}
