package webhook

// EventSelector is an endpoint's declaration that it only handles one event.
type EventSelector struct {
	EventName string
}

// Selector is an endpoint's own receiver declaration. An empty ReceiverName
// marks a general endpoint whose receiver is only known per request.
//
// Non-zero fields are capabilities the selector implements itself; they take
// precedence over registered descriptors for the same kind.
type Selector struct {
	ReceiverName string
	EventName    string
	BodyType     BodyType
	Binding      *BindingMetadata
	Event        *EventMetadata
	Ping         *PingRequestMetadata
}

// General reports whether the selector leaves the receiver name open.
func (s Selector) General() bool {
	return s.ReceiverName == ""
}

// Kinds lists the capability kinds the selector implements, in kind order.
func (s Selector) Kinds() []Kind {
	var kinds []Kind
	for _, k := range Kinds {
		if _, ok := s.Capability(k); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Capability returns the selector's own value for kind, if it implements it.
// Values are BindingMetadata, BodyType, EventMetadata, EventSelector or
// PingRequestMetadata.
func (s Selector) Capability(kind Kind) (any, bool) {
	switch kind {
	case KindBinding:
		if s.Binding != nil {
			return *s.Binding, true
		}
	case KindBodyType:
		if s.BodyType != 0 {
			return s.BodyType, true
		}
	case KindEvent:
		if s.Event != nil {
			return *s.Event, true
		}
	case KindEventSelector:
		if s.EventName != "" {
			return EventSelector{EventName: s.EventName}, true
		}
	case KindPingRequest:
		if s.Ping != nil {
			return *s.Ping, true
		}
	}
	return nil, false
}
