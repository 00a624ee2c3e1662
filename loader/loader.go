// Package loader reads ledger documents from disk and turns them into an ast.Ledger. A
// document is YAML, or JSON which YAML accepts as well, with top-level lists of accounts,
// commodities, payees, transactions, prices and options.
//
// The loader supports two modes of operation:
//   - Simple mode: decodes a single file with its include list preserved in the AST
//   - Follow mode: recursively loads all included files and merges them into one AST
//
// When following includes, the loader resolves relative paths from the directory of
// the file containing the include, and loads a file only once even when several files
// include it.
//
// Example usage:
//
//	// Load a single file without following includes
//	ldr := loader.New()
//	result, err := ldr.Load(ctx, "main.yaml")
//
//	// Load with recursive include resolution
//	ldr := loader.New(loader.WithFollowIncludes())
//	result, err := ldr.Load(ctx, "main.yaml")
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/telemetry"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Stdin is the filename that makes Load read from the configured standard input.
const Stdin = "-"

// Loader handles loading of ledger documents with optional include resolution.
//
// Configure the loader using functional options passed to New:
//
//	ldr := New(WithFollowIncludes())
type Loader struct {
	// FollowIncludes determines whether to recursively load included files.
	// When false, only the specified file is decoded and ast.Includes is preserved.
	// When true, all included files are recursively loaded and merged into a single AST.
	FollowIncludes bool

	stdin  io.Reader
	logger *slog.Logger
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all included files.
// When enabled:
//   - All include entries are recursively resolved and loaded
//   - Relative paths are resolved from the directory of the including file
//   - All declarations, transactions, prices and options are merged into a single AST
//   - The returned AST has ast.Includes set to nil (all includes resolved)
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// WithStdin sets the reader used when the filename is "-".
func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		l.stdin = r
	}
}

// WithLogger sets the logger receiving watcher problems.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{
		stdin:  os.Stdin,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Result is a loaded ledger together with the files it came from.
type Result struct {
	Ledger *ast.Ledger
	// Root is the absolute path of the loaded file, or "-" for standard input.
	Root string
	// Includes are the absolute paths of the included files, in load order.
	Includes []string
}

// Files returns the root file followed by every included file.
func (r *Result) Files() []string {
	files := make([]string, 0, len(r.Includes)+1)
	if r.Root != Stdin {
		files = append(files, r.Root)
	}
	return append(files, r.Includes...)
}

// Load decodes filename, following includes when configured to.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	timer := telemetry.StartTimer(ctx, "loader.load")
	defer timer.End()

	root := filename
	if filename != Stdin {
		abs, err := filepath.Abs(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
		}
		root = abs
	}

	if !l.FollowIncludes {
		tree, err := l.loadFile(timer, filename)
		if err != nil {
			return nil, err
		}
		return &Result{Ledger: tree, Root: root}, nil
	}

	state := &loaderState{
		loader:  l,
		timer:   timer,
		visited: make(map[string]bool),
	}
	tree, err := state.loadRecursive(ctx, filename)
	if err != nil {
		return nil, err
	}
	return &Result{Ledger: tree, Root: root, Includes: state.includes}, nil
}

func (l *Loader) loadFile(timer telemetry.Timer, filename string) (*ast.Ledger, error) {
	t := timer.Child("loader.decode " + filepath.Base(filename))
	defer t.End()

	var data []byte
	var err error
	if filename == Stdin {
		data, err = io.ReadAll(l.stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return Decode(filename, data)
}

// maxParallelDecodes bounds how many included files are read at once.
const maxParallelDecodes = 8

// loaderState tracks state during recursive loading. It is only touched by the goroutine
// running Load; included files are read concurrently but merged by that goroutine.
type loaderState struct {
	loader   *Loader
	timer    telemetry.Timer
	visited  map[string]bool // Absolute paths of files already loaded
	includes []string
}

// loadRecursive loads a file and all its includes.
func (s *loaderState) loadRecursive(ctx context.Context, filename string) (*ast.Ledger, error) {
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if filename != Stdin {
		absPath, err := filepath.Abs(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
		}
		s.visited[absPath] = true
		baseDir = filepath.Dir(absPath)
	}

	tree, err := s.loader.loadFile(s.timer, filename)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, filename, baseDir, tree)
}

// expand replaces the include list of tree by the contents of the included files. Files
// not loaded before are claimed in include order, read concurrently, and then expanded
// one after the other so that the merged result does not depend on scheduling.
func (s *loaderState) expand(ctx context.Context, filename, baseDir string, tree *ast.Ledger) (*ast.Ledger, error) {
	includes := tree.Includes
	tree.Includes = nil

	var pending []string
	for _, inc := range includes {
		includePath := inc
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		// Same file included multiple times
		if s.visited[includePath] {
			continue
		}
		s.visited[includePath] = true
		s.includes = append(s.includes, includePath)
		pending = append(pending, includePath)
	}

	trees := make([]*ast.Ledger, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDecodes)
	for i, includePath := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			included, err := s.loader.loadFile(s.timer, includePath)
			if err != nil {
				return err
			}
			trees[i] = included
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("in file %s: %w", filename, err)
	}

	for i, includePath := range pending {
		included, err := s.expand(ctx, includePath, filepath.Dir(includePath), trees[i])
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}
		tree.Merge(included)
	}

	return tree, nil
}

// DecodeError is returned when a document is not valid YAML or does not fit the ledger
// document layout.
type DecodeError struct {
	Pos ast.Position
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) GetPosition() ast.Position {
	return e.Pos
}

// Decode parses a ledger document. Positions of declarations, transactions, postings and
// prices that the document does not spell out are taken from the YAML source.
func Decode(filename string, data []byte) (*ast.Ledger, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newDecodeError(filename, err)
	}

	tree := &ast.Ledger{}
	if len(doc.Content) == 0 {
		return tree, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(tree); err != nil && !errors.Is(err, io.EOF) {
		return nil, newDecodeError(filename, err)
	}

	stampPositions(filename, doc.Content[0], tree)
	return tree, nil
}

func newDecodeError(filename string, err error) *DecodeError {
	pos := ast.Position{Filename: filename}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		pos.Line = errorLine(typeErr.Errors[0], "line %d:")
	} else {
		pos.Line = errorLine(err.Error(), "yaml: line %d:")
	}
	return &DecodeError{Pos: pos, Err: err}
}

// errorLine extracts the line yaml.v3 only reports in error messages.
func errorLine(msg, format string) int {
	var line int
	if _, err := fmt.Sscanf(msg, format, &line); err != nil {
		return 0
	}
	return line
}
