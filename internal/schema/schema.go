// Package schema turns Python-like class declarations with annotated fields
// into Models: ordered fields carrying a type, a role and an optional
// default, with single-parent inheritance and module-level aliases resolved.
package schema

import (
	"errors"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// ErrParseSkip marks a declaration that was dropped rather than registered,
// such as a class without fields.
var ErrParseSkip = errors.New("schema: declaration skipped")

// Role tells how a field participates in a node: baked-in constant, input or
// output slot, single or multi.
type Role string

const (
	RoleConstant    Role = "CONSTANT"
	RoleInput       Role = "INPUT"
	RoleOutput      Role = "OUTPUT"
	RoleMultiInput  Role = "MULTI_INPUT"
	RoleMultiOutput Role = "MULTI_OUTPUT"
)

// ParseRole accepts FieldRole.X, X or x spellings.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch r := Role(strings.ToUpper(s)); r {
	case RoleConstant, RoleInput, RoleOutput, RoleMultiInput, RoleMultiOutput:
		return r, true
	}
	return "", false
}

// IsInput reports whether the role produces an input slot.
func (r Role) IsInput() bool { return r == RoleInput || r == RoleMultiInput }

// IsOutput reports whether the role produces an output slot.
func (r Role) IsOutput() bool { return r == RoleOutput || r == RoleMultiOutput }

// IsMulti reports whether the role produces a multi slot.
func (r Role) IsMulti() bool { return r == RoleMultiInput || r == RoleMultiOutput }

// Field is one declared attribute of a Model.
type Field struct {
	Name    string         `json:"name"`
	Type    *typeexpr.Type `json:"-"`
	RawType string         `json:"rawType"`
	Role    Role           `json:"role"`
	// Default is the default expression after constant substitution.
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"hasDefault,omitempty"`
	// Property is set for fields declared through an @property getter.
	Property bool `json:"property,omitempty"`
}

// DefaultValue evaluates the default expression as a literal.
func (f Field) DefaultValue() any {
	if !f.HasDefault {
		return nil
	}
	return EvalLiteral(f.Default)
}

// Model is a parsed class. Fields holds the effective, inheritance-merged
// list; Own holds only what the class body declared.
type Model struct {
	Name   string   `json:"name"`
	Parent string   `json:"parent,omitempty"`
	Bases  []string `json:"bases,omitempty"`
	Fields []Field  `json:"fields"`
	Own    []Field  `json:"-"`
	Line   int      `json:"line,omitempty"`
}

// Field returns the named effective field.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Schema is the parsed content of one schema source.
type Schema struct {
	Name string
	// Root names the aggregate model, empty when the schema has none.
	Root      string
	Models    []*Model
	Aliases   map[string]string
	Constants map[string]string

	byName map[string]*Model
}

// Model looks up a registered model by bare or dotted name.
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.byName[typeexpr.BaseName(name)]
	return m, ok
}

// HasModel reports whether name is a registered model.
func (s *Schema) HasModel(name string) bool {
	_, ok := s.Model(name)
	return ok
}

// RootModel returns the aggregate model, if any.
func (s *Schema) RootModel() (*Model, bool) {
	if s.Root == "" {
		return nil, false
	}
	return s.Model(s.Root)
}

// ModelNames lists registered models in declaration order.
func (s *Schema) ModelNames() []string {
	out := make([]string, len(s.Models))
	for i, m := range s.Models {
		out[i] = m.Name
	}
	return out
}

// FieldRoles maps model name to field name to role.
func (s *Schema) FieldRoles() map[string]map[string]Role {
	out := make(map[string]map[string]Role, len(s.Models))
	for _, m := range s.Models {
		roles := make(map[string]Role, len(m.Fields))
		for _, f := range m.Fields {
			roles[f.Name] = f.Role
		}
		out[m.Name] = roles
	}
	return out
}

// Defaults maps model name to field name to evaluated default value, for
// fields that declare one.
func (s *Schema) Defaults() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.Models))
	for _, m := range s.Models {
		defs := make(map[string]any)
		for _, f := range m.Fields {
			if f.HasDefault {
				defs[f.Name] = f.DefaultValue()
			}
		}
		out[m.Name] = defs
	}
	return out
}

// ModelRefs returns the registered model names referenced anywhere in t, in
// first-seen order.
func (s *Schema) ModelRefs(t *typeexpr.Type) []string {
	var out []string
	seen := make(map[string]bool)
	for _, leaf := range t.Leaves() {
		m, ok := s.Model(leaf)
		if !ok || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		out = append(out, m.Name)
	}
	return out
}
