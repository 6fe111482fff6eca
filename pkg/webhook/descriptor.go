package webhook

import "slices"

// Predicate reports whether a descriptor applies to a concrete receiver name.
// Implementations must be pure and deterministic.
type Predicate func(receiverName string) bool

// Descriptor is a single capability declaration for one receiver.
type Descriptor interface {
	// Kind returns the capability this descriptor provides.
	Kind() Kind
	// ReceiverName returns the case-sensitive receiver name.
	ReceiverName() string
	// IsApplicable reports whether the descriptor is relevant to receiverName.
	IsApplicable(receiverName string) bool
}

// Receiver carries the receiver identity shared by every descriptor variant.
// A nil Applicable predicate matches the receiver name ordinally.
type Receiver struct {
	Name       string
	Applicable Predicate
}

// ReceiverName implements Descriptor.
func (r Receiver) ReceiverName() string { return r.Name }

// IsApplicable implements Descriptor.
func (r Receiver) IsApplicable(receiverName string) bool {
	if r.Applicable != nil {
		return r.Applicable(receiverName)
	}
	return receiverName == r.Name
}

// ParameterSource is where a bound action parameter is read from.
type ParameterSource string

const (
	SourceHeader ParameterSource = "header"
	SourceQuery  ParameterSource = "query"
	SourceRoute  ParameterSource = "route"
)

// BindingParameter maps one request value onto a named action parameter.
type BindingParameter struct {
	Name     string
	Source   ParameterSource
	Key      string
	Required bool
}

// BindingMetadata declares additional action parameters for a receiver.
type BindingMetadata struct {
	Receiver
	Parameters []BindingParameter
}

// NewBindingMetadata returns binding metadata owning a copy of params.
func NewBindingMetadata(r Receiver, params ...BindingParameter) BindingMetadata {
	return BindingMetadata{Receiver: r, Parameters: slices.Clone(params)}
}

func (BindingMetadata) Kind() Kind { return KindBinding }

// BodyTypeDescriptor is the full body-type contract. A body-type descriptor
// that does not implement it is treated like a legacy marker.
type BodyTypeDescriptor interface {
	Descriptor
	// Accepts returns the request body formats the receiver accepts.
	Accepts() BodyType
}

// BodyTypeMetadata implements BodyTypeDescriptor.
type BodyTypeMetadata struct {
	Receiver
	BodyType BodyType
}

func (BodyTypeMetadata) Kind() Kind { return KindBodyType }

// Accepts implements BodyTypeDescriptor.
func (b BodyTypeMetadata) Accepts() BodyType { return b.BodyType }

// EventFromBodyMetadata reads event names from the parsed request body.
type EventFromBodyMetadata struct {
	Receiver
	// Paths are dotted lookups into the body, tried in order.
	Paths []string
	// AllowMissing accepts requests whose body carries no event name.
	AllowMissing bool
}

// NewEventFromBodyMetadata returns event-from-body metadata owning a copy of paths.
func NewEventFromBodyMetadata(r Receiver, allowMissing bool, paths ...string) EventFromBodyMetadata {
	return EventFromBodyMetadata{Receiver: r, Paths: slices.Clone(paths), AllowMissing: allowMissing}
}

func (EventFromBodyMetadata) Kind() Kind { return KindEventFromBody }

// EventMetadata reads event names from headers or the query string, or
// supplies a constant.
type EventMetadata struct {
	Receiver
	HeaderName         string
	QueryParameterName string
	ConstantValue      string
	PingEventName      string
}

func (EventMetadata) Kind() Kind { return KindEvent }

// GetHeadRequestMetadata describes how a receiver answers GET and HEAD
// verification requests.
type GetHeadRequestMetadata struct {
	Receiver
	AllowHead                   bool
	ChallengeQueryParameterName string
	SecretKeyMinLength          int
	SecretKeyMaxLength          int
}

func (GetHeadRequestMetadata) Kind() Kind { return KindGetHeadRequest }

// PingRequestMetadata names the event a receiver sends as a ping.
type PingRequestMetadata struct {
	Receiver
	PingEventName string
}

func (PingRequestMetadata) Kind() Kind { return KindPingRequest }

// VerifyCodeMetadata names the query parameter carrying a verification code.
type VerifyCodeMetadata struct {
	Receiver
	CodeParameterName string
}

func (VerifyCodeMetadata) Kind() Kind { return KindVerifyCode }

// LegacyBodyTypeMarker declares a body type without a receiver name. It exists
// so older plugins are detected and rejected at startup.
type LegacyBodyTypeMarker struct {
	BodyType BodyType
}

func (LegacyBodyTypeMarker) Kind() Kind { return KindLegacyBodyType }

// ReceiverName implements Descriptor. Legacy markers carry no receiver.
func (LegacyBodyTypeMarker) ReceiverName() string { return "" }

// IsApplicable implements Descriptor. Legacy markers never apply.
func (LegacyBodyTypeMarker) IsApplicable(string) bool { return false }
