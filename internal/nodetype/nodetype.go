// Package nodetype turns schema models into node type descriptors: ordered,
// typed input and output slots plus the constants baked into every instance.
package nodetype

import (
	"github.com/dusk-indust/schemagraph/internal/schema"
	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// --- Enums ---

// Multiplicity tells whether a slot takes one link or many.
type Multiplicity string

const (
	Single Multiplicity = "SINGLE"
	Multi  Multiplicity = "MULTI"
)

// Kind is the base kind of a native slot, used for value coercion.
type Kind string

const (
	KindNone  Kind = ""
	KindInt   Kind = "int"
	KindBool  Kind = "bool"
	KindFloat Kind = "float"
	KindDict  Kind = "dict"
	KindList  Kind = "list"
	KindStr   Kind = "str"
)

// Default returns the empty value of a native kind.
func (k Kind) Default() any {
	switch k {
	case KindInt:
		return 0
	case KindBool:
		return false
	case KindFloat:
		return 0.0
	case KindDict:
		return "{}"
	case KindList:
		return "[]"
	case KindStr:
		return ""
	default:
		return nil
	}
}

// SelfSlot names output slot 0, which carries the node's whole record.
const SelfSlot = "self"

// --- Models ---

// Slot is a typed attachment point on a node type.
type Slot struct {
	Name string `json:"name"`
	// Type is the link type: the declared type for single slots, the element
	// type for multi slots.
	Type string `json:"type"`
	// Declared is the parsed field type.
	Declared     *typeexpr.Type `json:"-"`
	Multiplicity Multiplicity   `json:"multiplicity"`
	// Keyed marks Dict-typed multi slots: config import links one node per
	// object key. Every multi slot accepts "name.key" links.
	Keyed    bool `json:"keyed,omitempty"`
	Optional bool `json:"optional,omitempty"`
	Native   bool `json:"native,omitempty"`
	Kind     Kind `json:"kind,omitempty"`
	Default  any  `json:"default,omitempty"`
	// Refs lists the schema models the slot's type mentions, in order.
	Refs []string `json:"refs,omitempty"`
}

// IsMulti reports whether the slot takes many links.
func (s Slot) IsMulti() bool { return s.Multiplicity == Multi }

// NodeType describes one schema model as a graph node.
type NodeType struct {
	SchemaName   string         `json:"schema"`
	ModelName    string         `json:"model"`
	WorkflowType string         `json:"workflowType"`
	Root         bool           `json:"root,omitempty"`
	Constants    map[string]any `json:"constants,omitempty"`
	Inputs       []Slot         `json:"inputs"`
	Outputs      []Slot         `json:"outputs"`
	// Fields lists every field name in effective declaration order.
	Fields []string `json:"fields"`

	model *schema.Model
}

// Key returns the catalogue key schemaName.modelName.
func (t *NodeType) Key() string { return Key(t.SchemaName, t.ModelName) }

// Key builds a catalogue key.
func Key(schemaName, modelName string) string { return schemaName + "." + modelName }

// Model returns the schema model the type was generated from.
func (t *NodeType) Model() *schema.Model { return t.model }

// Input finds an input slot by name.
func (t *NodeType) Input(name string) (int, *Slot, bool) {
	return findSlot(t.Inputs, name)
}

// Output finds an output slot by name.
func (t *NodeType) Output(name string) (int, *Slot, bool) {
	return findSlot(t.Outputs, name)
}

func findSlot(slots []Slot, name string) (int, *Slot, bool) {
	for i := range slots {
		if slots[i].Name == name {
			return i, &slots[i], true
		}
	}
	return -1, nil, false
}
