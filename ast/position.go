package ast

import "fmt"

// Position represents a location in the source file.
type Position struct {
	Filename string `yaml:"file"`
	Line     int    `yaml:"line"` // Line number (1-indexed)
	Column   int    `yaml:"column"`
}

// IsZero returns true if the position carries no location.
func (p Position) IsZero() bool {
	return p.Filename == "" && p.Line == 0
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// GoString returns a Go-syntax representation of the position.
func (p Position) GoString() string {
	return fmt.Sprintf("Position{Filename: %q, Line: %d, Column: %d}", p.Filename, p.Line, p.Column)
}
