//go:build cgo

package schema

import (
	"context"
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Compile-time assertion: *TreeSitterScanner satisfies Scanner.
var _ Scanner = (*TreeSitterScanner)(nil)

// TreeSitterScanner extracts declarations from a full Python syntax tree.
// A new tree-sitter parser is created per Scan call, so this type is safe
// for sequential use but individual Scan calls are not thread-safe.
type TreeSitterScanner struct {
	language *tree_sitter.Language
}

// NewTreeSitterScanner creates a scanner with the Python grammar registered.
func NewTreeSitterScanner() (*TreeSitterScanner, error) {
	return &TreeSitterScanner{
		language: tree_sitter.NewLanguage(tree_sitter_python.Language()),
	}, nil
}

// Scan implements Scanner.
func (s *TreeSitterScanner) Scan(_ context.Context, source []byte) (*Declarations, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, fmt.Errorf("set language python: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	decl := &Declarations{}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "class_definition":
			decl.Classes = append(decl.Classes, s.extractClass(child, source))

		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def != nil && def.Kind() == "class_definition" {
				decl.Classes = append(decl.Classes, s.extractClass(def, source))
			}

		case "expression_statement":
			if b, ok := s.extractBinding(child, source); ok {
				decl.Bindings = append(decl.Bindings, b)
			}
		}
	}
	return decl, nil
}

// Close is a no-op because parsers are created per Scan call.
func (s *TreeSitterScanner) Close() error {
	return nil
}

func (s *TreeSitterScanner) extractClass(node *tree_sitter.Node, source []byte) ClassDecl {
	c := ClassDecl{Line: lineOf(node)}
	if name := node.ChildByFieldName("name"); name != nil {
		c.Name = name.Utf8Text(source)
	}

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.NamedChildCount(); i++ {
			arg := supers.NamedChild(i)
			if arg == nil || arg.Kind() == "keyword_argument" {
				continue
			}
			c.Bases = append(c.Bases, arg.Utf8Text(source))
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return c
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "expression_statement":
			if f, ok := s.extractField(stmt, source); ok {
				c.Fields = append(c.Fields, f)
			}
		case "decorated_definition":
			if f, ok := s.extractProperty(stmt, source); ok {
				c.Fields = append(c.Fields, f)
			}
		}
	}
	return c
}

// extractField handles "name: Annotation [= default]" statements.
func (s *TreeSitterScanner) extractField(stmt *tree_sitter.Node, source []byte) (FieldDecl, bool) {
	assign := firstNamedChild(stmt, "assignment")
	if assign == nil {
		return FieldDecl{}, false
	}
	left := assign.ChildByFieldName("left")
	typ := assign.ChildByFieldName("type")
	if left == nil || typ == nil || left.Kind() != "identifier" {
		return FieldDecl{}, false
	}
	f := FieldDecl{
		Name:       left.Utf8Text(source),
		Annotation: collapseSpace(typ.Utf8Text(source)),
		Line:       lineOf(stmt),
	}
	if right := assign.ChildByFieldName("right"); right != nil {
		f.Default = strings.TrimSpace(right.Utf8Text(source))
		f.HasDefault = true
	}
	return f, true
}

// extractProperty handles an @property getter with a return annotation.
func (s *TreeSitterScanner) extractProperty(stmt *tree_sitter.Node, source []byte) (FieldDecl, bool) {
	isProperty := false
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child != nil && child.Kind() == "decorator" && isPropertyDecorator(child.Utf8Text(source)) {
			isProperty = true
		}
	}
	if !isProperty {
		return FieldDecl{}, false
	}
	def := stmt.ChildByFieldName("definition")
	if def == nil || def.Kind() != "function_definition" {
		return FieldDecl{}, false
	}
	name := def.ChildByFieldName("name")
	ret := def.ChildByFieldName("return_type")
	if name == nil || ret == nil {
		return FieldDecl{}, false
	}
	return FieldDecl{
		Name:       name.Utf8Text(source),
		Annotation: collapseSpace(ret.Utf8Text(source)),
		Property:   true,
		Line:       lineOf(stmt),
	}, true
}

// extractBinding handles module-level "NAME [: Annotation] = value".
func (s *TreeSitterScanner) extractBinding(stmt *tree_sitter.Node, source []byte) (Binding, bool) {
	assign := firstNamedChild(stmt, "assignment")
	if assign == nil {
		return Binding{}, false
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" {
		return Binding{}, false
	}
	b := Binding{
		Name:  left.Utf8Text(source),
		Value: collapseSpace(right.Utf8Text(source)),
		Line:  lineOf(stmt),
	}
	if typ := assign.ChildByFieldName("type"); typ != nil {
		b.Annotation = collapseSpace(typ.Utf8Text(source))
	}
	return b, true
}

func firstNamedChild(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func lineOf(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
