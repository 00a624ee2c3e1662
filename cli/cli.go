// Package cli implements the dinero command line: loading a ledger, building it and
// rendering reports, errors and timings to the terminal.
package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/natefinch/atomic"
	"golang.org/x/term"

	"github.com/robinvdvleuten/dinero/ledger"
	"github.com/robinvdvleuten/dinero/loader"
	"github.com/robinvdvleuten/dinero/output"
	"github.com/robinvdvleuten/dinero/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	warningSymbol = "!"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD75F"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printWarning(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		warningStyle.Render(warningSymbol),
		message,
	)
}

func printInfof(w io.Writer, format string, args ...any) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// session carries what every command needs while it runs: the configured logger, the
// telemetry collector and the writers of the kong context.
type session struct {
	globals *Globals
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
	logger  *slog.Logger

	collector telemetry.Collector
	root      telemetry.Timer

	// stdinData keeps standard input once read, for error context.
	stdinData []byte
}

// newSession prepares a command run. name labels the root telemetry timer.
func newSession(kctx *kong.Context, globals *Globals, name string) *session {
	s := &session{
		globals: globals,
		stdout:  kctx.Stdout,
		stderr:  kctx.Stderr,
		stdin:   os.Stdin,
	}
	globals.applyColor(s.stdout)
	s.logger = slog.New(slog.NewTextHandler(s.stderr, &slog.HandlerOptions{Level: globals.level()}))

	if globals.Telemetry {
		s.collector = telemetry.NewTimingCollector()
		s.root = s.collector.Start(name)
	}
	return s
}

// context returns a context carrying the ledger configuration and telemetry of the session.
func (s *session) context(parent context.Context) context.Context {
	ctx := s.globals.Config(s.logger).WithContext(parent)
	if s.collector != nil {
		ctx = telemetry.WithCollector(ctx, s.collector)
		ctx = telemetry.WithRootTimer(ctx, s.root)
	}
	return ctx
}

// finish ends the root timer and prints the timing report when telemetry is enabled.
func (s *session) finish() {
	if s.collector == nil {
		return
	}
	s.root.End()
	_, _ = fmt.Fprintln(s.stderr)
	s.collector.Report(s.stderr, s.styles(s.stderr))
	s.collector = nil
}

// styles returns output styles for w that honour the --color flag.
func (s *session) styles(w io.Writer) *output.Styles {
	switch s.globals.Color {
	case "never":
		return output.Plain(w)
	case "always":
		return output.Forced(w)
	}
	return output.NewStyles(w)
}

// build loads file with its includes and assembles the ledger.
func (s *session) build(ctx context.Context, file string) (*ledger.Ledger, error) {
	ldr, err := s.loader(file)
	if err != nil {
		return nil, err
	}
	result, err := ldr.Load(ctx, file)
	if err != nil {
		return nil, err
	}
	return ledger.Build(ctx, result.Ledger)
}

// loader returns a loader following includes. Standard input is read into memory first so
// that error context can be shown for it.
func (s *session) loader(file string) (*loader.Loader, error) {
	opts := []loader.Option{loader.WithLogger(s.logger), loader.WithFollowIncludes()}
	if file == loader.Stdin {
		if s.stdinData == nil {
			data, err := io.ReadAll(s.stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read from stdin: %w", err)
			}
			s.stdinData = data
		}
		opts = append(opts, loader.WithStdin(bytes.NewReader(s.stdinData)))
	}
	return loader.New(opts...), nil
}

// fail renders err to stderr followed by summary, and returns the error that makes the
// process exit with status 1.
func (s *session) fail(err error, format string, summary string) error {
	renderErrors(s.stderr, err, s.stdinData, format)
	if format != "json" {
		_, _ = fmt.Fprintln(s.stderr)
		printError(s.stderr, summary)
	}
	s.finish()
	return NewCommandError(1, err)
}

// printWarnings lists the diagnostics that did not stop the build.
func (s *session) printWarnings(l *ledger.Ledger) {
	for _, w := range l.Warnings {
		printWarning(s.stderr, w.String())
	}
}

// writeOutput runs write against w, or replaces the file at path atomically when path is
// set so that a failed run never leaves a truncated file behind.
func writeOutput(w io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(w)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// applyColor makes lipgloss follow the --color flag.
func (g *Globals) applyColor(w io.Writer) {
	switch g.Color {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	default:
		if !isTerminal(w) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	}
}
