package configdoc

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

// FieldKind classifies a root-level document field.
type FieldKind int

const (
	// FieldCollection holds an array of records of one model.
	FieldCollection FieldKind = iota
	// FieldReference holds one record of a model, or an index into its
	// collection.
	FieldReference
	// FieldScalar holds a native value of the root model.
	FieldScalar
)

// FieldInfo describes one document field.
type FieldInfo struct {
	Name  string
	Kind  FieldKind
	Model string
	// Declared is set for fields of the root model.
	Declared bool
	// MergeInto names the collection a reference field's object is inserted
	// into (at index 0) on import, when one holds the same model.
	MergeInto string
}

// FieldMapping decides which document field holds each model's collection.
// Root model fields win; other models fall back to a pluralized name.
type FieldMapping struct {
	Schema string
	Root   *nodetype.NodeType

	fields  map[string]*FieldInfo
	order   []string
	byModel map[string]string
}

// NewFieldMapping derives the mapping for a registered schema.
func NewFieldMapping(c *nodetype.Catalogue, schemaName string) (*FieldMapping, error) {
	types := c.Types(schemaName)
	if len(types) == 0 {
		return nil, fmt.Errorf("configdoc: unknown schema %q", schemaName)
	}
	m := &FieldMapping{
		Schema:  schemaName,
		fields:  make(map[string]*FieldInfo),
		byModel: make(map[string]string),
	}
	if root, ok := c.Root(schemaName); ok {
		m.Root = root
		m.addRootFields()
	}

	for _, t := range types {
		if t.Root {
			continue
		}
		if _, ok := m.byModel[t.ModelName]; ok {
			continue
		}
		name := nodetype.CollectionName(t.ModelName)
		for i := 2; m.fields[name] != nil; i++ {
			name = fmt.Sprintf("%s_%d", nodetype.CollectionName(t.ModelName), i)
		}
		m.fields[name] = &FieldInfo{Name: name, Kind: FieldCollection, Model: t.ModelName}
		m.byModel[t.ModelName] = name
	}
	return m, nil
}

func (m *FieldMapping) addRootFields() {
	var refs []*FieldInfo
	for _, slot := range m.Root.Inputs {
		info := &FieldInfo{Name: slot.Name, Declared: true}
		m.order = append(m.order, slot.Name)
		m.fields[slot.Name] = info
		switch {
		case slot.Native || len(slot.Refs) == 0:
			info.Kind = FieldScalar
		case slot.IsMulti() || slot.Declared.IsCollection():
			info.Kind = FieldCollection
			info.Model = slot.Refs[0]
		default:
			info.Kind = FieldReference
			info.Model = slot.Refs[0]
			refs = append(refs, info)
		}
	}

	// Collections claim their model first so that a reference field declared
	// earlier cannot steal it. A model claimed twice keeps the first field.
	for _, name := range m.order {
		info := m.fields[name]
		if info.Kind != FieldCollection {
			continue
		}
		if _, taken := m.byModel[info.Model]; !taken {
			m.byModel[info.Model] = name
		}
	}
	for _, info := range refs {
		if coll, ok := m.byModel[info.Model]; ok {
			info.MergeInto = coll
			continue
		}
		m.byModel[info.Model] = info.Name
	}
}

// Field returns the named field, if known.
func (m *FieldMapping) Field(name string) (*FieldInfo, bool) {
	info, ok := m.fields[name]
	return info, ok
}

// FieldFor returns the document field holding model's collection.
func (m *FieldMapping) FieldFor(model string) (string, bool) {
	name, ok := m.byModel[model]
	return name, ok
}

// Order returns document fields in import order: root fields as declared,
// then the remaining names of doc sorted.
func (m *FieldMapping) Order(doc Document) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range m.order {
		if _, ok := doc[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range doc {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
