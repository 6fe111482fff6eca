package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/list"
)

// StringList is a simple list of strings.
// Created via Output.StringList().
type StringList struct {
	out   *Output
	meta  Meta
	items []string
}

// Add appends strings to the list.
func (l *StringList) Add(items ...string) *StringList {
	l.items = append(l.items, items...)
	return l
}

// Render outputs the list in the configured format.
func (l *StringList) Render() error {
	return l.out.Render(l)
}

// Meta returns the list metadata.
func (l *StringList) Meta() Meta {
	return l.meta
}

// RenderText writes a bulleted list using go-pretty.
func (l *StringList) RenderText(w io.Writer) error {
	if len(l.items) == 0 {
		return nil
	}
	lw := list.NewWriter()
	lw.SetStyle(list.StyleBulletCircle)
	for _, item := range l.items {
		lw.AppendItem(item)
	}
	_, err := io.WriteString(w, lw.Render()+"\n")
	return err
}

// RenderJSON returns the items as an array of strings.
func (l *StringList) RenderJSON() any {
	if l.items == nil {
		return []string{}
	}
	return l.items
}

// RenderMarkdown writes a markdown list using go-pretty.
func (l *StringList) RenderMarkdown(w io.Writer) error {
	if len(l.items) == 0 {
		return nil
	}
	lw := list.NewWriter()
	lw.SetStyle(list.StyleMarkdown)
	for _, item := range l.items {
		lw.AppendItem(item)
	}
	_, err := io.WriteString(w, lw.RenderMarkdown()+"\n")
	return err
}
