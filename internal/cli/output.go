// Package cli renders command results as text, JSON or markdown.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format string, defaulting to text.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Meta describes a rendered result. It is the JSON envelope's meta object
// and the markdown frontmatter.
type Meta struct {
	Type      string    `json:"type" yaml:"type"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Generated time.Time `json:"generated" yaml:"generated"`
	Snapshot  string    `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// NewMeta creates metadata with the given type and current timestamp.
func NewMeta(resultType string) Meta {
	return Meta{
		Type:      resultType,
		Version:   "v1",
		Generated: time.Now().UTC(),
	}
}

// WithSnapshot tags the metadata with the snapshot the result was read from.
func (m Meta) WithSnapshot(id string) Meta {
	m.Snapshot = id
	return m
}

// Renderable can render itself in multiple formats.
type Renderable interface {
	Meta() Meta
	RenderText(w io.Writer) error
	RenderJSON() any
	RenderMarkdown(w io.Writer) error
}

// Output renders results to one writer in one format. JSON results are
// wrapped in a {meta, data} envelope and markdown results get the meta as
// YAML frontmatter.
type Output struct {
	format Format
	w      io.Writer
	styles Styles
}

// NewOutput creates a renderer writing format to w. Text output is styled
// according to color.
func NewOutput(w io.Writer, format Format, color ColorMode) *Output {
	return &Output{format: format, w: w, styles: NewStyles(w, color)}
}

// Table creates a new table renderer attached to this output.
func (o *Output) Table(resultType string, headers ...string) *Table {
	return &Table{
		out:     o,
		meta:    NewMeta(resultType),
		headers: headers,
	}
}

// KV creates a new key-value renderer attached to this output.
func (o *Output) KV(resultType string) *KV {
	return &KV{
		out:  o,
		meta: NewMeta(resultType),
	}
}

// StringList creates a new string list renderer attached to this output.
func (o *Output) StringList(resultType string) *StringList {
	return &StringList{
		out:  o,
		meta: NewMeta(resultType),
	}
}

// Result creates a new success result attached to this output.
func (o *Output) Result(resultType, message string) *Result {
	return &Result{
		out:     o,
		meta:    NewMeta(resultType),
		message: message,
	}
}

// Error creates a new error result attached to this output.
func (o *Output) Error(resultType string, err error) *Error {
	return &Error{
		out:  o,
		meta: NewMeta(resultType + "-error"),
		err:  err,
	}
}

// Render outputs the renderable in the configured format.
func (o *Output) Render(r Renderable) error {
	switch o.format {
	case FormatJSON:
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(envelope{Meta: r.Meta(), Data: r.RenderJSON()})
	case FormatMarkdown:
		if err := writeFrontmatter(o.w, r.Meta()); err != nil {
			return err
		}
		return r.RenderMarkdown(o.w)
	default:
		return r.RenderText(o.w)
	}
}

type envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

func writeFrontmatter(w io.Writer, m Meta) error {
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "---\n\n")
	return err
}
