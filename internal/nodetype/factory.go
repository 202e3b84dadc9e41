package nodetype

import (
	"strings"

	"github.com/dusk-indust/schemagraph/internal/schema"
	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// Generate builds one NodeType per model of s, in model declaration order.
// Slot order always follows the effective field order.
func Generate(schemaName string, s *schema.Schema) []*NodeType {
	types := make([]*NodeType, 0, len(s.Models))
	for _, m := range s.Models {
		types = append(types, generateModel(schemaName, s, m))
	}
	return types
}

func generateModel(schemaName string, s *schema.Schema, m *schema.Model) *NodeType {
	nt := &NodeType{
		SchemaName: schemaName,
		ModelName:  m.Name,
		Root:       m.Name == s.Root,
		Constants:  make(map[string]any),
		model:      m,
	}
	nt.Outputs = append(nt.Outputs, Slot{
		Name:         SelfSlot,
		Type:         Key(schemaName, m.Name),
		Multiplicity: Single,
		Refs:         []string{m.Name},
	})

	for _, f := range m.Fields {
		nt.Fields = append(nt.Fields, f.Name)
		if f.Role == schema.RoleConstant {
			nt.Constants[f.Name] = f.DefaultValue()
			continue
		}
		slot := buildSlot(s, f)
		if f.Role.IsOutput() {
			nt.Outputs = append(nt.Outputs, slot)
		} else {
			nt.Inputs = append(nt.Inputs, slot)
		}
	}

	nt.WorkflowType = strings.ToLower(m.Name)
	if v, ok := nt.Constants["type"].(string); ok && v != "" {
		nt.WorkflowType = v
	}
	return nt
}

func buildSlot(s *schema.Schema, f schema.Field) Slot {
	t := f.Type
	if t == nil {
		t = typeexpr.Basic(typeexpr.AnyName)
	}
	_, optional := t.StripOptional()
	slot := Slot{
		Name:         f.Name,
		Type:         t.String(),
		Declared:     t,
		Multiplicity: Single,
		Optional:     optional,
		Refs:         s.ModelRefs(t),
	}

	if f.Role.IsMulti() {
		slot.Multiplicity = Multi
		elem, keyed := t.Element()
		slot.Keyed = keyed
		slot.Type = typeexpr.AnyName
		if elem != nil {
			slot.Type = elem.String()
		}
		return slot
	}

	kind, ok := Classify(s, t)
	if !ok {
		return slot
	}
	slot.Native = true
	slot.Kind = kind
	slot.Default = kind.Default()
	if optional {
		slot.Default = nil
	}
	if v := f.DefaultValue(); v != nil {
		slot.Default = v
	}
	return slot
}

// Classify reports whether a value of type t is entered directly rather than
// linked, and its base kind. Optional and message wrappers are ignored; a
// collection is native when its elements mention no model.
func Classify(s *schema.Schema, t *typeexpr.Type) (Kind, bool) {
	base, _ := t.StripOptional()
	if base == nil {
		return KindNone, false
	}
	switch base.Kind {
	case typeexpr.KindBasic:
		return primitiveKind(base.Name)
	case typeexpr.KindUnion:
		if !isPlain(s, base) {
			return KindNone, false
		}
		kind := KindNone
		for _, m := range base.Members {
			k, _ := Classify(s, m)
			switch {
			case kind == KindNone:
				kind = k
			case kind != k:
				return KindStr, true
			}
		}
		return kind, kind != KindNone
	case typeexpr.KindList, typeexpr.KindSet, typeexpr.KindTuple:
		if base.Inner == nil || isPlain(s, base.Inner) {
			return KindList, true
		}
	case typeexpr.KindDict:
		if base.Inner == nil || isPlain(s, base.Inner) {
			return KindDict, true
		}
	}
	return KindNone, false
}

// isPlain reports whether every leaf of t is a primitive or None.
func isPlain(s *schema.Schema, t *typeexpr.Type) bool {
	for _, leaf := range t.Leaves() {
		if leaf == "None" || leaf == "NoneType" {
			continue
		}
		if s.HasModel(leaf) {
			return false
		}
		if _, ok := primitiveKind(leaf); !ok {
			return false
		}
	}
	return true
}

func primitiveKind(name string) (Kind, bool) {
	switch name {
	// Index is an int synonym.
	case "int", "integer", "Index":
		return KindInt, true
	case "bool":
		return KindBool, true
	case "float":
		return KindFloat, true
	case "str", "string", typeexpr.AnyName:
		return KindStr, true
	case "dict", "Dict":
		return KindDict, true
	case "list", "List", "set", "Set", "tuple", "Tuple":
		return KindList, true
	}
	if strings.HasPrefix(name, "Literal[") {
		return KindStr, true
	}
	return KindNone, false
}
