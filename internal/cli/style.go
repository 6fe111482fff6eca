package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorMode controls styling of text output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses a colour mode, defaulting to auto.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

var (
	accentColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	failColor   = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	okColor     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
)

// Styles decorates text output. The zero value renders plain text.
type Styles struct {
	ok     lipgloss.Style
	fail   lipgloss.Style
	accent lipgloss.Style
	dim    lipgloss.Style
	styled bool
}

// NewStyles builds styles for w. In auto mode colour is used only when w is
// a terminal and NO_COLOR is unset.
func NewStyles(w io.Writer, mode ColorMode) Styles {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI256)
	case ColorNever:
		return Styles{}
	default:
		if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
			return Styles{}
		}
	}
	return Styles{
		ok:     r.NewStyle().Foreground(okColor).Bold(true),
		fail:   r.NewStyle().Foreground(failColor).Bold(true),
		accent: r.NewStyle().Foreground(accentColor).Bold(true),
		dim:    r.NewStyle().Foreground(dimColor),
		styled: true,
	}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styled reports whether the styles emit escape sequences.
func (s Styles) Styled() bool { return s.styled }

func (s Styles) OK(text string) string     { return s.render(s.ok, text) }
func (s Styles) Fail(text string) string   { return s.render(s.fail, text) }
func (s Styles) Accent(text string) string { return s.render(s.accent, text) }
func (s Styles) Dim(text string) string    { return s.render(s.dim, text) }

func (s Styles) render(st lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return st.Render(text)
}
