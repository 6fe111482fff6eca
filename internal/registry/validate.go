// Package registry validates the full set of registered capability
// descriptors and indexes them by receiver name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Build validates descriptors and returns the receiver index built from them.
//
// All rules run even after a failure so every finding is written to the
// diagnostic sink before Build returns. On failure the error holds one
// *webhook.DuplicateRegistrationError per offending kind and the
// *webhook.InvalidMetadataError(s) for the remaining findings.
func Build(ctx context.Context, descriptors []webhook.Descriptor, opts ...Option) (*Index, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &validation{ctx: ctx, logger: cfg.logger}
	accepted := v.rejectLegacy(descriptors)
	v.checkDuplicates(accepted)
	v.checkBodyTypes(accepted)
	v.checkEventConflicts(accepted)

	if err := v.err(cfg.separateMetadataErrors); err != nil {
		return nil, err
	}
	return newIndex(accepted), nil
}

// validation accumulates findings during a single pass.
type validation struct {
	ctx        context.Context
	logger     *slog.Logger
	duplicates []*webhook.DuplicateRegistrationError
	metadata   []webhook.Finding
}

func (v *validation) report(f webhook.Finding, attrs ...any) {
	v.logger.ErrorContext(v.ctx, f.Error(), attrs...)
}

// rejectLegacy reports legacy body-type markers and body-type descriptors
// missing the full contract, returning the remaining descriptors. Nil
// descriptors and descriptors without a receiver name are dropped with a
// warning.
func (v *validation) rejectLegacy(descriptors []webhook.Descriptor) []webhook.Descriptor {
	accepted := make([]webhook.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if isNil(d) {
			if d != nil {
				v.logger.WarnContext(v.ctx, "ignoring nil descriptor", "type", typeName(d))
			}
			continue
		}
		switch kind := d.Kind(); {
		case kind == webhook.KindLegacyBodyType:
			v.reportLegacy(d)
			continue
		case kind == webhook.KindBodyType:
			if _, ok := d.(webhook.BodyTypeDescriptor); !ok {
				v.reportLegacy(d)
				continue
			}
		case !kind.Registrable():
			v.logger.WarnContext(v.ctx, "ignoring descriptor with unregistrable kind",
				"kind", kind.String(), "receiver", d.ReceiverName(), "type", typeName(d))
			continue
		}
		if d.ReceiverName() == "" {
			v.logger.WarnContext(v.ctx, "ignoring descriptor without receiver name",
				"kind", d.Kind().String(), "type", typeName(d))
			continue
		}
		accepted = append(accepted, d)
	}
	return accepted
}

// isNil reports whether d is nil or a nil pointer held in the interface.
func isNil(d webhook.Descriptor) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (v *validation) reportLegacy(d webhook.Descriptor) {
	f := webhook.LegacyMetadataUsed{Type: typeName(d)}
	v.report(f, "type", f.Type)
	v.metadata = append(v.metadata, f)
}

// checkDuplicates reports every receiver name registered more than once for
// a unique kind. Names are reported once each, in first-occurrence order.
func (v *validation) checkDuplicates(descriptors []webhook.Descriptor) {
	counts := make(map[webhook.Kind]map[string]int)
	order := make(map[webhook.Kind][]string)
	for _, d := range descriptors {
		kind := d.Kind()
		if kind.Policy() != webhook.PolicyUnique {
			continue
		}
		names, ok := counts[kind]
		if !ok {
			names = make(map[string]int)
			counts[kind] = names
		}
		name := d.ReceiverName()
		if names[name] == 0 {
			order[kind] = append(order[kind], name)
		}
		names[name]++
	}

	for _, kind := range webhook.Kinds {
		var dup *webhook.DuplicateRegistrationError
		for _, name := range order[kind] {
			if counts[kind][name] < 2 {
				continue
			}
			f := webhook.DuplicateRegistration{Kind: kind, Receiver: name}
			v.report(f, "kind", kind.String(), "receiver", name, "count", counts[kind][name])
			if dup == nil {
				dup = &webhook.DuplicateRegistrationError{Kind: kind}
			}
			dup.Findings = append(dup.Findings, f)
		}
		if dup != nil {
			v.duplicates = append(v.duplicates, dup)
		}
	}
}

func (v *validation) checkBodyTypes(descriptors []webhook.Descriptor) {
	for _, d := range descriptors {
		bt, ok := d.(webhook.BodyTypeDescriptor)
		if !ok || d.Kind() != webhook.KindBodyType {
			continue
		}
		value := bt.Accepts()
		if value.Validate() == "" {
			continue
		}
		f := webhook.InvalidBodyTypeValue{Receiver: d.ReceiverName(), Value: value}
		v.report(f, "receiver", f.Receiver, "value", int(value))
		v.metadata = append(v.metadata, f)
	}
}

// checkEventConflicts reports receivers that register both event-from-body
// and event descriptors.
func (v *validation) checkEventConflicts(descriptors []webhook.Descriptor) {
	events := make(map[string]struct{})
	for _, d := range descriptors {
		if d.Kind() == webhook.KindEvent {
			events[d.ReceiverName()] = struct{}{}
		}
	}
	if len(events) == 0 {
		return
	}

	seen := make(map[string]struct{})
	for _, d := range descriptors {
		if d.Kind() != webhook.KindEventFromBody {
			continue
		}
		name := d.ReceiverName()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, conflict := events[name]; !conflict {
			continue
		}
		f := webhook.ConflictingEventMetadata{Receiver: name}
		v.report(f, "receiver", name)
		v.metadata = append(v.metadata, f)
	}
}

// err folds the accumulated findings into one error per category.
func (v *validation) err(separateMetadata bool) error {
	var errs []error
	for _, dup := range v.duplicates {
		errs = append(errs, dup)
	}

	if len(v.metadata) > 0 {
		if separateMetadata {
			errs = append(errs, splitMetadata(v.metadata)...)
		} else {
			errs = append(errs, &webhook.InvalidMetadataError{Findings: v.metadata})
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

func splitMetadata(findings []webhook.Finding) []error {
	order := []webhook.Category{
		webhook.CategoryLegacyMetadata,
		webhook.CategoryInvalidBodyType,
		webhook.CategoryConflictingEvents,
	}
	var errs []error
	for _, c := range order {
		var group []webhook.Finding
		for _, f := range findings {
			if f.Category() == c {
				group = append(group, f)
			}
		}
		if len(group) > 0 {
			errs = append(errs, &webhook.InvalidMetadataError{Findings: group})
		}
	}
	return errs
}

func typeName(d webhook.Descriptor) string {
	return fmt.Sprintf("%T", d)
}
