package cli

import (
	"fmt"
	"io"
)

type detail struct {
	key   string
	value any
}

// Result is a single success message with ordered details.
// Created via Output.Result().
type Result struct {
	out     *Output
	meta    Meta
	message string
	details []detail
}

// With adds a detail key-value pair.
func (r *Result) With(key string, value any) *Result {
	r.details = append(r.details, detail{key: key, value: value})
	return r
}

// WithSnapshot tags the result with a snapshot ID.
func (r *Result) WithSnapshot(id string) *Result {
	r.meta = r.meta.WithSnapshot(id)
	return r
}

// Render outputs the result in the configured format.
func (r *Result) Render() error {
	return r.out.Render(r)
}

// Meta returns the metadata.
func (r *Result) Meta() Meta {
	return r.meta
}

// RenderText writes the message and details.
func (r *Result) RenderText(w io.Writer) error {
	s := r.out.styles
	if _, err := fmt.Fprintf(w, "%s %s\n", s.OK("✓"), r.message); err != nil {
		return err
	}
	return writeDetails(w, s, r.details)
}

// RenderJSON returns message and details as object.
func (r *Result) RenderJSON() any {
	result := make(map[string]any, len(r.details)+1)
	result["message"] = r.message
	for _, d := range r.details {
		result[toJSONKey(d.key)] = d.value
	}
	return result
}

// RenderMarkdown writes the result in markdown.
func (r *Result) RenderMarkdown(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "**%s**\n\n", r.message); err != nil {
		return err
	}
	for _, d := range r.details {
		if _, err := fmt.Fprintf(w, "- **%s:** %v\n", d.key, formatMarkdownValue(d.value)); err != nil {
			return err
		}
	}
	return nil
}

// Error is a structured error result. Causes are the individual problems
// behind err, listed in order.
// Created via Output.Error().
type Error struct {
	out     *Output
	meta    Meta
	err     error
	code    string
	causes  []string
	details []detail
}

// WithCode sets an error code.
func (e *Error) WithCode(code string) *Error {
	e.code = code
	return e
}

// WithCauses appends cause lines.
func (e *Error) WithCauses(causes ...string) *Error {
	e.causes = append(e.causes, causes...)
	return e
}

// With adds a detail key-value pair.
func (e *Error) With(key string, value any) *Error {
	e.details = append(e.details, detail{key: key, value: value})
	return e
}

// Render outputs the error in the configured format.
func (e *Error) Render() error {
	return e.out.Render(e)
}

// Meta returns the metadata.
func (e *Error) Meta() Meta {
	return e.meta
}

// RenderText writes the error.
func (e *Error) RenderText(w io.Writer) error {
	s := e.out.styles
	label := "Error"
	if e.code != "" {
		label = fmt.Sprintf("Error [%s]", s.Accent(e.code))
	}
	if _, err := fmt.Fprintf(w, "%s %s: %v\n", s.Fail("✗"), label, e.err); err != nil {
		return err
	}
	for _, c := range e.causes {
		if _, err := fmt.Fprintf(w, "  %s %s\n", s.Dim("-"), c); err != nil {
			return err
		}
	}
	return writeDetails(w, s, e.details)
}

// RenderJSON returns error as object.
func (e *Error) RenderJSON() any {
	result := map[string]any{
		"error": e.err.Error(),
	}
	if e.code != "" {
		result["code"] = e.code
	}
	if len(e.causes) > 0 {
		result["causes"] = e.causes
	}
	for _, d := range e.details {
		result[toJSONKey(d.key)] = d.value
	}
	return result
}

// RenderMarkdown writes the error in markdown.
func (e *Error) RenderMarkdown(w io.Writer) error {
	label := "Error"
	if e.code != "" {
		label = fmt.Sprintf("Error [%s]", e.code)
	}
	if _, err := fmt.Fprintf(w, "> **%s:** %v\n", label, e.err); err != nil {
		return err
	}

	if len(e.causes)+len(e.details) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, c := range e.causes {
		if _, err := fmt.Fprintf(w, "- %s\n", c); err != nil {
			return err
		}
	}
	for _, d := range e.details {
		if _, err := fmt.Fprintf(w, "- **%s:** %v\n", d.key, formatMarkdownValue(d.value)); err != nil {
			return err
		}
	}
	return nil
}

func writeDetails(w io.Writer, s Styles, details []detail) error {
	maxLen := 0
	for _, d := range details {
		if len(d.key) > maxLen {
			maxLen = len(d.key)
		}
	}
	for _, d := range details {
		// pad before styling so escape codes do not skew alignment
		key := fmt.Sprintf("%-*s", maxLen+1, d.key+":")
		if _, err := fmt.Fprintf(w, "  %s  %v\n", s.Dim(key), d.value); err != nil {
			return err
		}
	}
	return nil
}
