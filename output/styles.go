// Package output provides styling helpers for terminal output. Styles degrade to plain
// text when the writer is not a terminal.
package output

import (
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Styles provides styled output helpers for the CLI.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

// Plain returns Styles that never emit escape sequences.
func Plain(w io.Writer) *Styles {
	return &Styles{output: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))}
}

// Forced returns Styles that always emit colors, even when w is not a terminal.
func Forced(w io.Writer) *Styles {
	return &Styles{output: termenv.NewOutput(w, termenv.WithProfile(termenv.ANSI256))}
}

func (s *Styles) color(text, code string, bold bool) string {
	str := s.output.String(text).Foreground(s.output.Color(code))
	if bold {
		str = str.Bold()
	}
	return str.String()
}

// Success returns a styled success string (green + bold).
func (s *Styles) Success(text string) string {
	return s.color(text, "2", true)
}

// Error returns a styled error string (red + bold).
func (s *Styles) Error(text string) string {
	return s.color(text, "1", true)
}

// Warning returns a styled warning (yellow + bold).
func (s *Styles) Warning(text string) string {
	return s.color(text, "3", true)
}

// FilePath returns a styled file path (cyan).
func (s *Styles) FilePath(text string) string {
	return s.color(text, "6", false)
}

// Account returns a styled account name (blue).
func (s *Styles) Account(text string) string {
	return s.color(text, "4", false)
}

// Payee returns a styled payee (yellow).
func (s *Styles) Payee(text string) string {
	return s.color(text, "3", false)
}

// Amount colors a formatted amount by sign: red for negative amounts, magenta otherwise.
// Both a leading minus and parentheses count as negative.
func (s *Styles) Amount(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "(") {
		return s.color(text, "1", false)
	}
	return s.color(text, "5", false)
}

// Keyword returns a styled keyword (bold).
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).Bold().String()
}

// Dim returns dimmed text (for secondary information).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).Faint().String()
}

// Timing styles a duration: red when the operation was slow, dimmed otherwise.
func (s *Styles) Timing(text string, isSlowOperation bool) string {
	if isSlowOperation {
		return s.color(text, "1", false)
	}
	return s.Dim(text)
}

// Output returns the underlying termenv Output for advanced usage.
func (s *Styles) Output() *termenv.Output {
	return s.output
}
