package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"json", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"text", FormatText},
		{"", FormatText},
		{"unknown", FormatText},
		{"JSON", FormatText}, // case-sensitive, uppercase not recognised
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseColorMode(t *testing.T) {
	tests := map[string]ColorMode{
		"always": ColorAlways,
		"never":  ColorNever,
		"auto":   ColorAuto,
		"":       ColorAuto,
		"sure":   ColorAuto,
	}
	for in, want := range tests {
		if got := ParseColorMode(in); got != want {
			t.Errorf("ParseColorMode(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

func TestNewMeta(t *testing.T) {
	m := NewMeta("bindings")

	if m.Type != "bindings" {
		t.Errorf("Type = %q, want %q", m.Type, "bindings")
	}
	if m.Version != "v1" {
		t.Errorf("Version = %q, want %q", m.Version, "v1")
	}
	if m.Generated.IsZero() {
		t.Error("Generated should not be zero")
	}
	if m.Snapshot != "" {
		t.Errorf("Snapshot = %q, want empty", m.Snapshot)
	}

	tagged := m.WithSnapshot("abc")
	if tagged.Snapshot != "abc" || m.Snapshot != "" {
		t.Error("WithSnapshot should return a copy")
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestLooksLikeID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0123456789abcdef", true},
		{"0123456789ABCDEF0123", true},
		{"9f2c7a8e-2b1d-4f57-9a53-1c4d8f1e2a90", true},
		{"0123456789abcde", false},
		{"github-delivery-id", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksLikeID(tt.input); got != tt.want {
			t.Errorf("looksLikeID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToJSONKey(t *testing.T) {
	tests := map[string]string{
		"Endpoint":      "endpoint",
		"Receiver Name": "receiver_name",
		"kind":          "kind",
	}
	for in, want := range tests {
		if got := toJSONKey(in); got != want {
			t.Errorf("toJSONKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMarkdownValue(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{"9f2c7a8e-2b1d-4f57-9a53-1c4d8f1e2a90", "`9f2c7a8e-2b1d-4f57-9a53-1c4d8f1e2a90`"},
		{"json|xml", "json\\|xml"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := formatMarkdownValue(tt.input); got != tt.want {
			t.Errorf("formatMarkdownValue(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// KV
// ---------------------------------------------------------------------------

func TestKV_RenderText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatText, ColorAuto)

	if err := out.KV("summary").Set("Descriptors", 12).Set("Endpoints", 3).Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	text := buf.String()
	for _, want := range []string{"Descriptors:", "12", "Endpoints:", "3"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "Descriptors") > strings.Index(text, "Endpoints") {
		t.Error("pairs should keep insertion order")
	}
}

func TestKV_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatJSON, ColorAuto)

	if err := out.KV("summary").Set("Snapshot ID", "s1").Set("Endpoints", 3).WithSnapshot("s1").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var envelope struct {
		Meta Meta           `json:"meta"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if envelope.Meta.Type != "summary" || envelope.Meta.Snapshot != "s1" {
		t.Errorf("meta = %+v", envelope.Meta)
	}
	if envelope.Data["snapshot_id"] != "s1" {
		t.Errorf("data.snapshot_id = %v", envelope.Data["snapshot_id"])
	}
	if envelope.Data["endpoints"] != float64(3) {
		t.Errorf("data.endpoints = %v", envelope.Data["endpoints"])
	}
}

func TestKV_RenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatMarkdown, ColorAuto)

	if err := out.KV("summary").Set("Receivers", "github|slack").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	md := buf.String()
	if !strings.HasPrefix(md, "---\n") {
		t.Errorf("markdown should start with frontmatter, got:\n%s", md)
	}
	if !strings.Contains(md, "type: summary") {
		t.Errorf("frontmatter missing type, got:\n%s", md)
	}
	if !strings.Contains(md, "**Receivers:** github\\|slack") {
		t.Errorf("markdown missing escaped pair, got:\n%s", md)
	}
}

func TestKV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutput(&buf, FormatText, ColorAuto).KV("empty").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty KV should render nothing, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

func TestTable_RenderText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatText, ColorAuto)

	tbl := out.Table("bindings", "Endpoint", "Kind", "Source")
	tbl.AddRow("github", "binding", "registry")
	tbl.AddRow("github", "event", "registry")
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}

	if err := tbl.MergeFirstColumn().Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	text := buf.String()
	for _, want := range []string{"ENDPOINT", "KIND", "binding", "event", "registry"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	if n := strings.Count(text, "github"); n != 1 {
		t.Errorf("merged first column shows github %d times, want 1:\n%s", n, text)
	}
}

func TestTable_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatJSON, ColorAuto)

	tbl := out.Table("bindings", "Endpoint", "Receiver Name")
	tbl.AddRow("github", "github")
	tbl.AddRow("generic", "")

	if err := tbl.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var envelope struct {
		Meta Meta                `json:"meta"`
		Data []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if envelope.Meta.Type != "bindings" {
		t.Errorf("meta.type = %q", envelope.Meta.Type)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("data length = %d, want 2", len(envelope.Data))
	}
	if envelope.Data[0]["receiver_name"] != "github" || envelope.Data[1]["endpoint"] != "generic" {
		t.Errorf("data = %+v", envelope.Data)
	}
}

func TestTable_RenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatMarkdown, ColorAuto)

	tbl := out.Table("bindings", "Endpoint", "Kind")
	tbl.AddRow("github", "ping-request")

	if err := tbl.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	md := buf.String()
	if !strings.Contains(md, "| Endpoint") {
		t.Errorf("markdown should contain '| Endpoint' header, got:\n%s", md)
	}
	if !strings.Contains(md, "ping-request") {
		t.Errorf("markdown should contain the row, got:\n%s", md)
	}
}

func TestTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutput(&buf, FormatJSON, ColorAuto).Table("empty", "Name").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var envelope struct {
		Data []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if envelope.Data == nil || len(envelope.Data) != 0 {
		t.Errorf("data = %v, want empty array", envelope.Data)
	}
}

// ---------------------------------------------------------------------------
// Result
// ---------------------------------------------------------------------------

func TestResult_RenderText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatText, ColorAuto)

	err := out.Result("validate", "Metadata is valid").
		With("Files", 2).
		With("Descriptors", 12).
		Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want 3", lines)
	}
	if lines[0] != "✓ Metadata is valid" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Files:") || !strings.Contains(lines[2], "Descriptors:") {
		t.Errorf("details out of order: %q", lines[1:])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("non-terminal output should not be styled")
	}
}

func TestResult_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatJSON, ColorAuto)

	if err := out.Result("validate", "ok").With("Endpoint Count", 2).Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if envelope.Data["message"] != "ok" || envelope.Data["endpoint_count"] != float64(2) {
		t.Errorf("data = %+v", envelope.Data)
	}
}

func TestResult_RenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatMarkdown, ColorAuto)

	if err := out.Result("validate", "Metadata is valid").With("Files", 1).Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	md := buf.String()
	if !strings.Contains(md, "**Metadata is valid**") || !strings.Contains(md, "- **Files:** 1") {
		t.Errorf("markdown = %s", md)
	}
}

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

func TestError_RenderText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatText, ColorAuto)

	err := out.Error("validate", errors.New("Duplicate 'binding' registrations found.")).
		WithCode("duplicate-registration").
		WithCauses("first cause", "second cause").
		With("Files", 2).
		Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	text := buf.String()
	if !strings.HasPrefix(text, "✗ Error [duplicate-registration]: Duplicate 'binding' registrations found.\n") {
		t.Errorf("text = %q", text)
	}
	if strings.Index(text, "- first cause") > strings.Index(text, "- second cause") {
		t.Errorf("causes out of order:\n%s", text)
	}
	if !strings.Contains(text, "Files:") {
		t.Errorf("text missing detail:\n%s", text)
	}
}

func TestError_RenderText_WithoutCode(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutput(&buf, FormatText, ColorAuto).Error("load", errors.New("boom")).Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := buf.String(); got != "✗ Error: boom\n" {
		t.Errorf("text = %q", got)
	}
}

func TestError_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatJSON, ColorAuto)

	if err := out.Error("validate", errors.New("bad")).WithCauses("c1").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var envelope struct {
		Meta Meta `json:"meta"`
		Data struct {
			Error  string   `json:"error"`
			Code   string   `json:"code"`
			Causes []string `json:"causes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if envelope.Meta.Type != "validate-error" {
		t.Errorf("meta.type = %q, want validate-error", envelope.Meta.Type)
	}
	if envelope.Data.Error != "bad" || envelope.Data.Code != "" {
		t.Errorf("data = %+v", envelope.Data)
	}
	if len(envelope.Data.Causes) != 1 || envelope.Data.Causes[0] != "c1" {
		t.Errorf("causes = %v", envelope.Data.Causes)
	}
}

func TestError_RenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatMarkdown, ColorAlways)

	if err := out.Error("validate", errors.New("bad")).WithCode("x").WithCauses("c1").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	md := buf.String()
	if !strings.Contains(md, "> **Error [x]:** bad") || !strings.Contains(md, "- c1") {
		t.Errorf("markdown = %s", md)
	}
	if strings.Contains(md, "\x1b[") {
		t.Errorf("markdown should never be styled: %q", md)
	}
}

// ---------------------------------------------------------------------------
// StringList
// ---------------------------------------------------------------------------

func TestStringList_Render(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "a.yaml"},
		{FormatMarkdown, "* a.yaml"},
		{FormatJSON, `"a.yaml"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewOutput(&buf, tt.format, ColorAuto).StringList("files").Add("a.yaml", "b.yaml").Render(); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) || !strings.Contains(buf.String(), "b.yaml") {
				t.Errorf("output = %s", buf.String())
			}
		})
	}
}

func TestStringList_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutput(&buf, FormatJSON, ColorAuto).StringList("files").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"data": []`) {
		t.Errorf("empty list should encode as [], got %s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

func TestStyles(t *testing.T) {
	var buf bytes.Buffer

	if s := NewStyles(&buf, ColorAuto); s.Styled() || s.OK("x") != "x" {
		t.Error("auto mode should not style a non-terminal writer")
	}
	if s := NewStyles(&buf, ColorNever); s.Styled() || s.Fail("x") != "x" {
		t.Error("never mode should not style")
	}
	if s := (Styles{}); s.Accent("x") != "x" || s.Dim("x") != "x" {
		t.Error("zero Styles should render plain text")
	}

	s := NewStyles(&buf, ColorAlways)
	if !s.Styled() {
		t.Fatal("always mode should style")
	}
	if got := s.OK("ok"); !strings.Contains(got, "\x1b[") || !strings.Contains(got, "ok") {
		t.Errorf("OK() = %q, want escape sequences", got)
	}
}

func TestOutput_StyledResult(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatText, ColorAlways)
	if err := out.Result("validate", "fine").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("styled output = %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func TestNewOutput_ColorNever(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOutput(&buf, FormatText, ColorNever).Error("load", errors.New("boom")).WithCode("x").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := buf.String(); got != "✗ Error [x]: boom\n" {
		t.Errorf("text = %q", got)
	}
}

func TestJSON_EnvelopeStructure(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, FormatJSON, ColorAuto)

	if err := out.Result("schema", "ok").WithSnapshot("s1").Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("JSON unmarshal error = %v", err)
	}
	if len(raw) != 2 {
		t.Errorf("envelope keys = %d, want meta and data", len(raw))
	}
	var meta map[string]any
	if err := json.Unmarshal(raw["meta"], &meta); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"type", "version", "generated", "snapshot"} {
		if _, ok := meta[key]; !ok {
			t.Errorf("meta missing %q", key)
		}
	}
}
