package webhook

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateRegistration matches errors reporting more than one
	// descriptor of a unique kind for the same receiver.
	ErrDuplicateRegistration = errors.New("webhook: duplicate registration")
	// ErrInvalidMetadata matches errors reporting descriptors that break the
	// metadata rules (legacy markers, bad body types, event conflicts).
	ErrInvalidMetadata = errors.New("webhook: invalid metadata services")
	// ErrInvalidSelector indicates an endpoint selector carries unusable values.
	ErrInvalidSelector = errors.New("webhook: invalid selector")
	// ErrDuplicateEndpoint indicates two endpoints share an ID.
	ErrDuplicateEndpoint = errors.New("webhook: duplicate endpoint")
)

// Category groups findings that are reported through the same error.
type Category string

const (
	CategoryDuplicateRegistration Category = "duplicate-registration"
	CategoryLegacyMetadata        Category = "legacy-metadata"
	CategoryInvalidBodyType       Category = "invalid-body-type"
	CategoryConflictingEvents     Category = "conflicting-event-metadata"
)

// Finding is one offending fact discovered while validating descriptors.
// Error returns the diagnostic line written for it.
type Finding interface {
	error
	Category() Category
}

// DuplicateRegistration reports a receiver with several descriptors of one
// unique kind.
type DuplicateRegistration struct {
	Kind     Kind
	Receiver string
}

func (d DuplicateRegistration) Error() string {
	return fmt.Sprintf("Duplicate '%s' registrations found for the '%s' WebHook receiver.", d.Kind, d.Receiver)
}

func (DuplicateRegistration) Category() Category { return CategoryDuplicateRegistration }

// LegacyMetadataUsed reports a registered legacy body-type marker.
type LegacyMetadataUsed struct {
	Type string
}

func (l LegacyMetadataUsed) Error() string {
	return fmt.Sprintf("'%s' implements the legacy body-type marker, not the full body-type-service contract.", l.Type)
}

func (LegacyMetadataUsed) Category() Category { return CategoryLegacyMetadata }

// InvalidBodyTypeValue reports a body-type descriptor with an unusable value.
type InvalidBodyTypeValue struct {
	Receiver string
	Value    BodyType
}

func (i InvalidBodyTypeValue) Error() string {
	return fmt.Sprintf("Invalid body-type value '%d' for the '%s' receiver: %s.", int(i.Value), i.Receiver, i.Value.Validate())
}

func (InvalidBodyTypeValue) Category() Category { return CategoryInvalidBodyType }

// ConflictingEventMetadata reports a receiver with both event-from-body and
// event descriptors.
type ConflictingEventMetadata struct {
	Receiver string
}

func (c ConflictingEventMetadata) Error() string {
	return fmt.Sprintf("Invalid metadata services found for the '%s' receiver. "+
		"Receivers must not provide both event-from-body and event services.", c.Receiver)
}

func (ConflictingEventMetadata) Category() Category { return CategoryConflictingEvents }

// DuplicateRegistrationError is returned once per kind with duplicates.
type DuplicateRegistrationError struct {
	Kind     Kind
	Findings []DuplicateRegistration
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("Duplicate '%s' registrations found.", e.Kind)
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

func (e *DuplicateRegistrationError) Unwrap() []error {
	errs := make([]error, len(e.Findings))
	for i, f := range e.Findings {
		errs[i] = f
	}
	return errs
}

// Receivers lists the offending receiver names in report order.
func (e *DuplicateRegistrationError) Receivers() []string {
	names := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		names[i] = f.Receiver
	}
	return names
}

// metadataCategories fixes the order sub-causes appear in an
// InvalidMetadataError message.
var metadataCategories = []struct {
	category Category
	summary  string
}{
	{CategoryLegacyMetadata, "Metadata services must not implement the legacy body-type marker " +
		"and must instead implement the full body-type-service contract."},
	{CategoryInvalidBodyType, "Metadata services implementing the body-type-service contract " +
		"must have valid body-type values."},
	{CategoryConflictingEvents, "Receivers must not provide both event-from-body and event services."},
}

// InvalidMetadataError aggregates legacy marker, body-type value and event
// conflict findings.
type InvalidMetadataError struct {
	Findings []Finding
}

func (e *InvalidMetadataError) Error() string {
	var b strings.Builder
	b.WriteString("Invalid metadata services found.")
	for _, mc := range metadataCategories {
		if e.has(mc.category) {
			b.WriteByte(' ')
			b.WriteString(mc.summary)
		}
	}
	return b.String()
}

func (e *InvalidMetadataError) Is(target error) bool {
	return target == ErrInvalidMetadata
}

func (e *InvalidMetadataError) Unwrap() []error {
	errs := make([]error, len(e.Findings))
	for i, f := range e.Findings {
		errs[i] = f
	}
	return errs
}

// Categories lists the distinct sub-causes in message order.
func (e *InvalidMetadataError) Categories() []Category {
	var out []Category
	for _, mc := range metadataCategories {
		if e.has(mc.category) {
			out = append(out, mc.category)
		}
	}
	return out
}

func (e *InvalidMetadataError) has(c Category) bool {
	for _, f := range e.Findings {
		if f.Category() == c {
			return true
		}
	}
	return false
}

// Findings collects every finding carried by err, looking through wrapped
// and joined errors, in report order.
func Findings(err error) []Finding {
	var out []Finding
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *DuplicateRegistrationError:
			for _, f := range e.Findings {
				out = append(out, f)
			}
		case *InvalidMetadataError:
			out = append(out, e.Findings...)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(err))
		}
	}
	walk(err)
	return out
}
