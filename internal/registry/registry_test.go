package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

// recordingHandler captures log records so tests can assert on diagnostics.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.records))
	for i, r := range h.records {
		out[i] = r.Message
	}
	return out
}

func build(t *testing.T, descriptors []webhook.Descriptor, opts ...Option) (*Index, *recordingHandler, error) {
	t.Helper()
	h := &recordingHandler{}
	opts = append([]Option{WithLogger(slog.New(h))}, opts...)
	idx, err := Build(context.Background(), descriptors, opts...)
	return idx, h, err
}

func rcv(name string) webhook.Receiver {
	return webhook.Receiver{Name: name}
}

func validMetadata() []webhook.Descriptor {
	return []webhook.Descriptor{
		webhook.NewBindingMetadata(rcv("some name")),
		webhook.BodyTypeMetadata{Receiver: rcv("some name"), BodyType: webhook.BodyTypeJSON},
		webhook.BodyTypeMetadata{Receiver: rcv("unique name"), BodyType: webhook.BodyTypeJSON},
		webhook.NewEventFromBodyMetadata(rcv("unique name1"), false, "type"),
		webhook.NewEventFromBodyMetadata(rcv("unique name2"), false, "type"),
		webhook.NewEventFromBodyMetadata(rcv("unique name3"), false, "type"),
		webhook.EventMetadata{Receiver: rcv("some name"), HeaderName: "X-Event"},
		webhook.GetHeadRequestMetadata{Receiver: rcv("unique name1")},
		webhook.GetHeadRequestMetadata{Receiver: rcv("unique name2")},
		webhook.GetHeadRequestMetadata{Receiver: rcv("some name")},
		webhook.PingRequestMetadata{Receiver: rcv("some name"), PingEventName: "ping"},
		webhook.VerifyCodeMetadata{Receiver: rcv("some name"), CodeParameterName: "code"},
	}
}

// incompleteBodyType signals a body type without implementing Accepts.
type incompleteBodyType struct{}

func (incompleteBodyType) Kind() webhook.Kind         { return webhook.KindBodyType }
func (incompleteBodyType) ReceiverName() string       { return "some name" }
func (incompleteBodyType) IsApplicable(s string) bool { return s == "some name" }

func TestBuildSucceedsWithEmptyMetadata(t *testing.T) {
	idx, h, err := build(t, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := len(h.messages()); n != 0 {
		t.Errorf("diagnostics = %d, want 0", n)
	}
	if idx.Len() != 0 || len(idx.Receivers()) != 0 {
		t.Errorf("expected empty index, got %d descriptors", idx.Len())
	}
}

func TestBuildSkipsNilDescriptors(t *testing.T) {
	descriptors := append(validMetadata(),
		nil,
		(*webhook.PingRequestMetadata)(nil),
	)
	idx, h, err := build(t, descriptors)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Len() != 12 {
		t.Errorf("Len() = %d, want 12", idx.Len())
	}
	if msgs := h.messages(); len(msgs) != 1 || msgs[0] != "ignoring nil descriptor" {
		t.Errorf("diagnostics = %q, want one nil-descriptor warning", msgs)
	}
}

func TestBuildSkipsUnnamedDescriptors(t *testing.T) {
	descriptors := append(validMetadata(),
		webhook.PingRequestMetadata{Receiver: rcv(""), PingEventName: "ping"},
		webhook.PingRequestMetadata{Receiver: rcv(""), PingEventName: "pong"},
	)
	idx, h, err := build(t, descriptors)
	if err != nil {
		t.Fatalf("Build() error = %v, unnamed descriptors must not count as duplicates", err)
	}
	if idx.Len() != 12 {
		t.Errorf("Len() = %d, want 12", idx.Len())
	}
	if _, ok := idx.Lookup(webhook.KindPingRequest, ""); ok {
		t.Error("unnamed descriptor should not be indexed")
	}
	msgs := h.messages()
	if len(msgs) != 2 {
		t.Fatalf("diagnostics = %q, want 2", msgs)
	}
	for _, r := range h.records {
		if r.Level != slog.LevelWarn || r.Message != "ignoring descriptor without receiver name" {
			t.Errorf("diagnostic = %s %q", r.Level, r.Message)
		}
	}
}

func TestBuildSucceedsWithValidMetadata(t *testing.T) {
	idx, h, err := build(t, validMetadata())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if msgs := h.messages(); len(msgs) != 0 {
		t.Errorf("diagnostics = %v, want none", msgs)
	}
	if idx.Len() != 12 {
		t.Errorf("Len() = %d, want 12", idx.Len())
	}
}

func TestBuildRejectsDuplicateMetadata(t *testing.T) {
	binding := webhook.NewBindingMetadata(rcv("some name"))
	event := webhook.EventMetadata{Receiver: rcv("some name")}
	ping := webhook.PingRequestMetadata{Receiver: rcv("some name")}
	verify := webhook.VerifyCodeMetadata{Receiver: rcv("some name")}

	tests := []struct {
		name        string
		descriptors []webhook.Descriptor
		kind        webhook.Kind
	}{
		{"one instance twice", []webhook.Descriptor{binding, binding}, webhook.KindBinding},
		{"two instances same name", []webhook.Descriptor{
			webhook.BodyTypeMetadata{Receiver: rcv("some name"), BodyType: webhook.BodyTypeJSON},
			webhook.BodyTypeMetadata{Receiver: rcv("some name"), BodyType: webhook.BodyTypeXML},
		}, webhook.KindBodyType},
		{"one instance thrice", []webhook.Descriptor{event, event, event}, webhook.KindEvent},
		{"three instances all same name", []webhook.Descriptor{
			webhook.GetHeadRequestMetadata{Receiver: rcv("some name")},
			webhook.GetHeadRequestMetadata{Receiver: rcv("some name"), AllowHead: true},
			webhook.GetHeadRequestMetadata{Receiver: rcv("some name")},
		}, webhook.KindGetHeadRequest},
		{"pointer instance twice", []webhook.Descriptor{&ping, &ping}, webhook.KindPingRequest},
		{"verify code twice", []webhook.Descriptor{verify, verify}, webhook.KindVerifyCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h, err := build(t, tt.descriptors)
			if err == nil {
				t.Fatal("expected error")
			}
			wantErr := "Duplicate '" + tt.kind.String() + "' registrations found."
			if err.Error() != wantErr {
				t.Errorf("error = %q, want %q", err.Error(), wantErr)
			}
			if !errors.Is(err, webhook.ErrDuplicateRegistration) {
				t.Error("expected errors.Is ErrDuplicateRegistration")
			}
			msgs := h.messages()
			if len(msgs) != 1 {
				t.Fatalf("diagnostics = %v, want exactly 1", msgs)
			}
			wantLog := "Duplicate '" + tt.kind.String() + "' registrations found for the 'some name' WebHook receiver."
			if msgs[0] != wantLog {
				t.Errorf("diagnostic = %q, want %q", msgs[0], wantLog)
			}
		})
	}
}

func TestBuildAllowsFilterableDuplicates(t *testing.T) {
	_, h, err := build(t, []webhook.Descriptor{
		webhook.NewEventFromBodyMetadata(rcv("some name"), false, "a"),
		webhook.NewEventFromBodyMetadata(rcv("unique name"), false, "a"),
		webhook.NewEventFromBodyMetadata(rcv("some name"), false, "b"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := len(h.messages()); n != 0 {
		t.Errorf("diagnostics = %d, want 0", n)
	}
}

func TestBuildLogsAllDuplicateMetadata(t *testing.T) {
	descriptors := []webhook.Descriptor{
		webhook.NewBindingMetadata(rcv("some name")),
		webhook.NewBindingMetadata(rcv("unique name")),
		webhook.NewBindingMetadata(rcv("some name")),
		webhook.NewBindingMetadata(rcv("another name")),
		webhook.NewBindingMetadata(rcv("another name")),
	}
	_, h, err := build(t, descriptors)
	if err == nil || err.Error() != "Duplicate 'binding' registrations found." {
		t.Fatalf("error = %v", err)
	}
	var dup *webhook.DuplicateRegistrationError
	if !errors.As(err, &dup) {
		t.Fatal("expected *DuplicateRegistrationError")
	}
	if got := dup.Receivers(); len(got) != 2 || got[0] != "some name" || got[1] != "another name" {
		t.Errorf("Receivers() = %v", got)
	}
	want := []string{
		"Duplicate 'binding' registrations found for the 'some name' WebHook receiver.",
		"Duplicate 'binding' registrations found for the 'another name' WebHook receiver.",
	}
	msgs := h.messages()
	if len(msgs) != len(want) {
		t.Fatalf("diagnostics = %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("diagnostic[%d] = %q, want %q", i, msgs[i], want[i])
		}
	}
}

func TestBuildReportsOneErrorPerDuplicateKind(t *testing.T) {
	ping := webhook.PingRequestMetadata{Receiver: rcv("r1")}
	_, h, err := build(t, []webhook.Descriptor{
		ping,
		webhook.NewBindingMetadata(rcv("r1")),
		ping,
		webhook.NewBindingMetadata(rcv("r1")),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	errs := joined.Unwrap()
	if len(errs) != 2 {
		t.Fatalf("errors = %d, want 2", len(errs))
	}
	if errs[0].Error() != "Duplicate 'binding' registrations found." {
		t.Errorf("errs[0] = %q", errs[0].Error())
	}
	if errs[1].Error() != "Duplicate 'ping-request' registrations found." {
		t.Errorf("errs[1] = %q", errs[1].Error())
	}
	if n := len(h.messages()); n != 2 {
		t.Errorf("diagnostics = %d, want 2", n)
	}
}

func TestBuildRejectsLegacyBodyTypeMetadata(t *testing.T) {
	_, h, err := build(t, []webhook.Descriptor{
		webhook.LegacyBodyTypeMarker{BodyType: webhook.BodyTypeJSON},
		incompleteBodyType{},
		webhook.BodyTypeMetadata{Receiver: rcv("some name"), BodyType: webhook.BodyTypeJSON},
	})
	want := "Invalid metadata services found. Metadata services must not implement the legacy " +
		"body-type marker and must instead implement the full body-type-service contract."
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
	if !errors.Is(err, webhook.ErrInvalidMetadata) {
		t.Error("expected errors.Is ErrInvalidMetadata")
	}
	wantLogs := []string{
		"'webhook.LegacyBodyTypeMarker' implements the legacy body-type marker, not the full body-type-service contract.",
		"'registry.incompleteBodyType' implements the legacy body-type marker, not the full body-type-service contract.",
	}
	msgs := h.messages()
	if len(msgs) != len(wantLogs) {
		t.Fatalf("diagnostics = %v, want %v", msgs, wantLogs)
	}
	for i := range wantLogs {
		if msgs[i] != wantLogs[i] {
			t.Errorf("diagnostic[%d] = %q, want %q", i, msgs[i], wantLogs[i])
		}
	}
}

func TestBuildRejectsInvalidBodyTypeValues(t *testing.T) {
	_, h, err := build(t, []webhook.Descriptor{
		webhook.BodyTypeMetadata{Receiver: rcv("r1"), BodyType: 0},
		webhook.BodyTypeMetadata{Receiver: rcv("ok"), BodyType: webhook.BodyTypeJSON},
		webhook.BodyTypeMetadata{Receiver: rcv("r2"), BodyType: 8},
	})
	want := "Invalid metadata services found. Metadata services implementing the " +
		"body-type-service contract must have valid body-type values."
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
	var invalid *webhook.InvalidMetadataError
	if !errors.As(err, &invalid) || len(invalid.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %+v", invalid)
	}
	wantLogs := []string{
		"Invalid body-type value '0' for the 'r1' receiver: no flags set.",
		"Invalid body-type value '8' for the 'r2' receiver: no matching defined value.",
	}
	msgs := h.messages()
	if len(msgs) != len(wantLogs) {
		t.Fatalf("diagnostics = %v, want %v", msgs, wantLogs)
	}
	for i := range wantLogs {
		if msgs[i] != wantLogs[i] {
			t.Errorf("diagnostic[%d] = %q, want %q", i, msgs[i], wantLogs[i])
		}
	}
}

func TestBuildRejectsEventAndEventFromBodyMetadata(t *testing.T) {
	_, h, err := build(t, []webhook.Descriptor{
		webhook.NewEventFromBodyMetadata(rcv("r1"), false, "type"),
		webhook.NewEventFromBodyMetadata(rcv("r1"), true, "kind"),
		webhook.EventMetadata{Receiver: rcv("r1")},
		webhook.EventMetadata{Receiver: rcv("r2")},
	})
	want := "Invalid metadata services found. Receivers must not provide both event-from-body and event services."
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
	msgs := h.messages()
	if len(msgs) != 1 {
		t.Fatalf("diagnostics = %v, want 1", msgs)
	}
	wantLog := "Invalid metadata services found for the 'r1' receiver. " +
		"Receivers must not provide both event-from-body and event services."
	if msgs[0] != wantLog {
		t.Errorf("diagnostic = %q, want %q", msgs[0], wantLog)
	}
}

func TestBuildMergesMetadataCauses(t *testing.T) {
	descriptors := []webhook.Descriptor{
		webhook.NewEventFromBodyMetadata(rcv("r1"), false, "type"),
		webhook.EventMetadata{Receiver: rcv("r1")},
		webhook.BodyTypeMetadata{Receiver: rcv("r2"), BodyType: 0},
		webhook.LegacyBodyTypeMarker{},
		webhook.NewBindingMetadata(rcv("r3")),
		webhook.NewBindingMetadata(rcv("r3")),
	}

	t.Run("merged by default", func(t *testing.T) {
		_, h, err := build(t, descriptors)
		joined, ok := err.(interface{ Unwrap() []error })
		if !ok {
			t.Fatalf("expected joined error, got %T", err)
		}
		errs := joined.Unwrap()
		if len(errs) != 2 {
			t.Fatalf("errors = %d, want 2 (duplicates + metadata)", len(errs))
		}
		var invalid *webhook.InvalidMetadataError
		if !errors.As(errs[1], &invalid) {
			t.Fatalf("errs[1] = %T, want *InvalidMetadataError", errs[1])
		}
		if len(invalid.Categories()) != 3 {
			t.Errorf("Categories() = %v, want 3", invalid.Categories())
		}
		msgs := h.messages()
		if len(msgs) != 4 {
			t.Fatalf("diagnostics = %v, want 4", msgs)
		}
		// legacy, duplicates, body types, conflicts
		if msgs[0] != "'webhook.LegacyBodyTypeMarker' implements the legacy body-type marker, "+
			"not the full body-type-service contract." {
			t.Errorf("diagnostic[0] = %q", msgs[0])
		}
		if msgs[1] != "Duplicate 'binding' registrations found for the 'r3' WebHook receiver." {
			t.Errorf("diagnostic[1] = %q", msgs[1])
		}
	})

	t.Run("separate on request", func(t *testing.T) {
		_, _, err := build(t, descriptors, WithSeparateMetadataErrors(true))
		errs := err.(interface{ Unwrap() []error }).Unwrap()
		if len(errs) != 4 {
			t.Fatalf("errors = %d, want 4", len(errs))
		}
		for _, e := range errs[1:] {
			if !errors.Is(e, webhook.ErrInvalidMetadata) {
				t.Errorf("%q should match ErrInvalidMetadata", e.Error())
			}
		}
	})
}

func TestBuildWritesDiagnosticsAtErrorLevel(t *testing.T) {
	b := webhook.NewBindingMetadata(rcv("r1"))
	_, h, _ := build(t, []webhook.Descriptor{b, b})
	if len(h.records) != 1 {
		t.Fatalf("records = %d, want 1", len(h.records))
	}
	r := h.records[0]
	if r.Level != slog.LevelError {
		t.Errorf("Level = %v, want ERROR", r.Level)
	}
	attrs := map[string]string{}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	if attrs["kind"] != "binding" || attrs["receiver"] != "r1" {
		t.Errorf("attrs = %v", attrs)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	first, h1, err := build(t, validMetadata())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, h2, err := build(t, validMetadata())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(h1.messages()) != 0 || len(h2.messages()) != 0 {
		t.Error("expected no diagnostics")
	}
	if first.Len() != second.Len() {
		t.Fatalf("Len() %d != %d", first.Len(), second.Len())
	}
	for _, kind := range webhook.Kinds {
		a, b := first.List(kind), second.List(kind)
		if len(a) != len(b) {
			t.Fatalf("List(%v) lengths %d != %d", kind, len(a), len(b))
		}
		for i := range a {
			if a[i].ReceiverName() != b[i].ReceiverName() || a[i].Kind() != b[i].Kind() {
				t.Errorf("List(%v)[%d] differs", kind, i)
			}
		}
	}
}

func TestIndexLookups(t *testing.T) {
	idx, _, err := build(t, validMetadata())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	t.Run("unique lookup", func(t *testing.T) {
		d, ok := idx.Lookup(webhook.KindPingRequest, "some name")
		if !ok {
			t.Fatal("expected ping descriptor")
		}
		if d.(webhook.PingRequestMetadata).PingEventName != "ping" {
			t.Errorf("unexpected descriptor %+v", d)
		}
		if _, ok := idx.Lookup(webhook.KindPingRequest, "unique name"); ok {
			t.Error("absent receiver should not resolve")
		}
	})

	t.Run("lists keep registration order", func(t *testing.T) {
		list := idx.List(webhook.KindEventFromBody)
		if len(list) != 3 {
			t.Fatalf("List() = %d, want 3", len(list))
		}
		for i, want := range []string{"unique name1", "unique name2", "unique name3"} {
			if list[i].ReceiverName() != want {
				t.Errorf("List()[%d] = %q, want %q", i, list[i].ReceiverName(), want)
			}
		}
		if got := idx.ListFor(webhook.KindEventFromBody, "unique name2"); len(got) != 1 {
			t.Errorf("ListFor() = %d, want 1", len(got))
		}
	})

	t.Run("list is a copy", func(t *testing.T) {
		list := idx.List(webhook.KindBodyType)
		list[0] = nil
		if idx.List(webhook.KindBodyType)[0] == nil {
			t.Error("mutating List() result changed the index")
		}
	})

	t.Run("receivers sorted", func(t *testing.T) {
		got := idx.Receivers()
		want := []string{"some name", "unique name", "unique name1", "unique name2", "unique name3"}
		if len(got) != len(want) {
			t.Fatalf("Receivers() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Receivers()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("kinds", func(t *testing.T) {
		if got := idx.Kinds(); len(got) != 7 {
			t.Errorf("Kinds() = %v, want 7 registry kinds", got)
		}
	})
}
