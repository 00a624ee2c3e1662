package cli

import (
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/dinero/ast"
	errs "github.com/robinvdvleuten/dinero/errors"
	"github.com/robinvdvleuten/dinero/loader"
)

var (
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling. Source context is read from the file
// named by each error position, or taken from stdin for standard input.
type ErrorRenderer struct {
	stdin   []byte
	sources map[string][]byte
}

// NewErrorRenderer creates a renderer. stdin holds standard input if it was read.
func NewErrorRenderer(stdin []byte) *ErrorRenderer {
	return &ErrorRenderer{stdin: stdin, sources: make(map[string][]byte)}
}

// Render formats a single error: the message in the error style, and the context lines
// dimmed.
func (r *ErrorRenderer) Render(err error) string {
	var opts []errs.TextFormatterOption
	if src := r.source(err); src != nil {
		opts = append(opts, errs.WithSource(src))
	}
	text := errs.NewTextFormatter(nil, opts...).Format(err)

	message, context, found := strings.Cut(text, "\n")
	if !found {
		return errorStyle.Render(message)
	}

	var buf strings.Builder
	buf.WriteString(errorStyle.Render(message))
	for _, line := range strings.Split(context, "\n") {
		buf.WriteByte('\n')
		if line != "" {
			buf.WriteString(errContextStyle.Render(line))
		}
	}
	return buf.String()
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(list []error) string {
	parts := make([]string, 0, len(list))
	for _, err := range list {
		parts = append(parts, strings.TrimRight(r.Render(err), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func (r *ErrorRenderer) source(err error) []byte {
	pos, ok := position(err)
	if !ok || pos.Filename == "" {
		return nil
	}
	if pos.Filename == loader.Stdin {
		return r.stdin
	}
	if src, ok := r.sources[pos.Filename]; ok {
		return src
	}
	src, readErr := os.ReadFile(pos.Filename)
	if readErr != nil {
		src = nil
	}
	r.sources[pos.Filename] = src
	return src
}

func position(err error) (ast.Position, bool) {
	var posErr interface{ GetPosition() ast.Position }
	if !stdErrors.As(err, &posErr) {
		return ast.Position{}, false
	}
	return posErr.GetPosition(), true
}

// renderErrors writes err to w as styled text or as a JSON array.
func renderErrors(w io.Writer, err error, stdin []byte, format string) {
	list := errs.Flatten(err)
	if format == "json" {
		_, _ = fmt.Fprintln(w, errs.NewJSONFormatter().FormatAll(list))
		return
	}
	_, _ = fmt.Fprintln(w, NewErrorRenderer(stdin).RenderAll(list))
}
