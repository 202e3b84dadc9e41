package schema

import (
	"context"
	"errors"
	"fmt"
)

// Declarations is the raw, unresolved content of a schema source as produced
// by a Scanner: module-level bindings and class bodies in source order.
type Declarations struct {
	Bindings []Binding   `json:"bindings"`
	Classes  []ClassDecl `json:"classes"`
}

// Binding is a module-level NAME = value statement.
type Binding struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Annotation string `json:"annotation,omitempty"` // e.g. TypeAlias
	Line       int    `json:"line"`
}

// ClassDecl is one class statement with the fields found in its body.
type ClassDecl struct {
	Name   string      `json:"name"`
	Bases  []string    `json:"bases,omitempty"`
	Fields []FieldDecl `json:"fields,omitempty"`
	Line   int         `json:"line"`
}

// FieldDecl is an annotated attribute or an @property getter. Annotation is
// the raw annotation text, Default the raw default expression.
type FieldDecl struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation"`
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"hasDefault,omitempty"`
	Property   bool   `json:"property,omitempty"`
	Line       int    `json:"line"`
}

// Scanner extracts Declarations from schema source text.
// Implementations: LineScanner (pure Go), TreeSitterScanner (cgo).
type Scanner interface {
	// Scan reads declarations from source. Statements that are not class
	// bodies or module-level bindings are ignored.
	Scan(ctx context.Context, source []byte) (*Declarations, error)

	// Close releases scanner resources.
	Close() error
}

// ErrTreeSitterUnavailable is returned by NewTreeSitterScanner in builds
// without cgo.
var ErrTreeSitterUnavailable = errors.New("schema: tree-sitter scanner requires cgo")

// NewScanner returns the scanner registered under kind: "line" (default) or
// "treesitter".
func NewScanner(kind string) (Scanner, error) {
	switch kind {
	case "", "line":
		return NewLineScanner(), nil
	case "treesitter", "tree-sitter":
		s, err := NewTreeSitterScanner()
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("schema: unknown scanner %q", kind)
	}
}
