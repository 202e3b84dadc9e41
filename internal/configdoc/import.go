package configdoc

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/dusk-indust/schemagraph/internal/graph"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

const (
	columnWidth = 320.0
	rowHeight   = 160.0
)

// Import rebuilds schemaName's nodes in g from doc. It never aborts on a bad
// field: dangling indexes, unknown models and unlinkable values are skipped,
// logged and collected in Result.Skipped. Only an unknown schema is an error.
//
// Order of work:
//  1. a reference object whose model also has a root collection becomes
//     index 0 of that collection, shifting the others;
//  2. collections and standalone reference objects become nodes, indexed in
//     document order per field;
//  3. every created node's fields are filled: integers are indexes into the
//     model's collection, objects become embedded nodes, and anything bound
//     for a native slot is stored as a value;
//  4. the root instance is created last and wired to every field;
//  5. every node is executed.
func Import(g *graph.Graph, schemaName string, doc Document, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	mapping, err := NewFieldMapping(g.Catalogue(), schemaName)
	if err != nil {
		return nil, err
	}
	im := &importer{
		g:       g,
		mapping: mapping,
		log:     o.log.With("schema", schemaName),
		res:     &Result{},
		groups:  make(map[string][]*pending),
		refs:    make(map[string]*graph.Node),
	}

	order := mapping.Order(doc)
	column := make(map[string]int, len(order))
	for col, name := range order {
		column[name] = col
	}

	// Merged references go first so that creation order matches the
	// collection index they take.
	for _, name := range order {
		info, ok := mapping.Field(name)
		if !ok || info.Kind != FieldReference || info.MergeInto == "" {
			continue
		}
		obj, isObj := doc[name].(map[string]any)
		if !isObj {
			continue
		}
		col, ok := column[info.MergeInto]
		if !ok {
			col = len(order)
		}
		if n := im.create(info.MergeInto, info.Model, obj, col); n != nil {
			im.refs[name] = n
		}
	}

	for col, name := range order {
		info, ok := mapping.Field(name)
		if !ok {
			im.res.skip(im.log, unresolved("document field %s matches no model", name), "field", name)
			continue
		}
		val := doc[name]
		switch info.Kind {
		case FieldScalar:
		case FieldReference:
			if _, isIndex := asIndex(val); isIndex {
				continue
			}
			if obj, isObj := val.(map[string]any); isObj {
				if info.MergeInto != "" {
					continue
				}
				if n := im.create(name, info.Model, obj, col); n != nil {
					im.refs[name] = n
				}
				continue
			}
			im.createAll(name, info.Model, val, col)
		case FieldCollection:
			if obj, isObj := val.(map[string]any); isObj {
				im.create(name, info.Model, obj, col)
				continue
			}
			im.createAll(name, info.Model, val, col)
		}
	}

	for _, field := range im.groupOrder {
		for _, p := range im.groups[field] {
			im.populate(p.node, p.obj)
		}
	}

	if mapping.Root != nil {
		im.wireRoot(doc, order)
	}

	g.ExecuteAll()
	im.log.Info("imported config", "nodes", im.res.Nodes, "links", im.res.Links, "skipped", im.res.SkippedCount())
	return im.res, nil
}

type pending struct {
	node *graph.Node
	obj  map[string]any
}

type importer struct {
	g       *graph.Graph
	mapping *FieldMapping
	log     hclog.Logger
	res     *Result

	groups     map[string][]*pending
	groupOrder []string
	refs       map[string]*graph.Node
	embedded   int
}

// Position lays nodes out in a grid: one column per document field.
func Position(col, row int) graph.Position {
	return graph.Position{X: float64(col) * columnWidth, Y: float64(row) * rowHeight}
}

func (im *importer) touch(field string) {
	if _, ok := im.groups[field]; !ok {
		im.groups[field] = nil
		im.groupOrder = append(im.groupOrder, field)
	}
}

func (im *importer) newNode(model string, pos graph.Position) *graph.Node {
	t, ok := im.g.Catalogue().Lookup(im.mapping.Schema, model)
	if !ok {
		im.res.skip(im.log, unresolved("no node type for model %s", model), "model", model)
		return nil
	}
	im.res.Nodes++
	return im.g.AddNode(t, pos)
}

func (im *importer) create(field, model string, obj map[string]any, col int) *graph.Node {
	n := im.newNode(model, Position(col, len(im.groups[field])))
	if n == nil {
		return nil
	}
	im.touch(field)
	im.groups[field] = append(im.groups[field], &pending{node: n, obj: obj})
	return n
}

func (im *importer) createAll(field, model string, val any, col int) {
	items, ok := val.([]any)
	if !ok {
		im.res.skip(im.log, unresolved("field %s is neither an array nor an object", field), "field", field)
		return
	}
	im.touch(field)
	for row, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			im.res.skip(im.log, unresolved("field %s[%d] is not an object", field, row), "field", field, "index", row)
			continue
		}
		im.create(field, model, obj, col)
	}
}

// partition returns the nodes index references to model resolve against.
func (im *importer) partition(model string) []*pending {
	field, ok := im.mapping.FieldFor(model)
	if !ok {
		return nil
	}
	return im.groups[field]
}

// populate fills n's input slots from obj.
func (im *importer) populate(n *graph.Node, obj map[string]any) {
	for i, slot := range n.Type.Inputs {
		val, ok := obj[slot.Name]
		if !ok || val == nil {
			continue
		}
		switch {
		case slot.Native:
			im.setScalar(n, slot, val)
		case slot.IsMulti():
			im.linkMany(n, i, slot, val)
		default:
			im.linkOne(n, i, slot, val)
		}
	}
}

// setScalar stores a native value. Objects and arrays bound for a dict or
// list slot are kept as JSON text, the form the slot is edited in.
func (im *importer) setScalar(n *graph.Node, slot nodetype.Slot, val any) {
	switch val.(type) {
	case map[string]any, []any:
		if slot.Kind == nodetype.KindDict || slot.Kind == nodetype.KindList {
			b, err := json.Marshal(val)
			if err != nil {
				im.res.skip(im.log, err, "node", n.ID, "field", slot.Name)
				return
			}
			val = string(b)
		}
	}
	if err := im.g.SetValue(n.ID, slot.Name, val); err != nil {
		im.res.skip(im.log, err, "node", n.ID, "field", slot.Name)
	}
}

func (im *importer) linkOne(n *graph.Node, i int, slot nodetype.Slot, val any) {
	if idx, ok := asIndex(val); ok {
		if src := im.resolveIndex(n, slot, idx); src != nil {
			im.connect(src, n, i, "")
		}
		return
	}
	if obj, ok := val.(map[string]any); ok {
		if src := im.embed(slot, obj); src != nil {
			im.connect(src, n, i, "")
		}
		return
	}
	im.res.skip(im.log, unresolved("%s.%s: cannot link %T", n.Type.ModelName, slot.Name, val), "node", n.ID, "field", slot.Name)
}

func (im *importer) linkMany(n *graph.Node, i int, slot nodetype.Slot, val any) {
	switch x := val.(type) {
	case []any:
		for _, item := range x {
			im.linkItem(n, i, slot, item, "")
		}
	case map[string]any:
		if !slot.Keyed {
			im.linkItem(n, i, slot, x, "")
			return
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			im.linkItem(n, i, slot, x[k], k)
		}
	default:
		im.linkItem(n, i, slot, val, "")
	}
}

func (im *importer) linkItem(n *graph.Node, i int, slot nodetype.Slot, item any, key string) {
	var src *graph.Node
	if idx, ok := asIndex(item); ok {
		src = im.resolveIndex(n, slot, idx)
	} else if obj, ok := item.(map[string]any); ok {
		src = im.embed(slot, obj)
	} else {
		im.res.skip(im.log, unresolved("%s.%s: cannot link %T", n.Type.ModelName, slot.Name, item), "node", n.ID, "field", slot.Name)
	}
	if src != nil {
		im.connect(src, n, i, key)
	}
}

// resolveIndex looks idx up in the collection of the slot's first model.
func (im *importer) resolveIndex(n *graph.Node, slot nodetype.Slot, idx int) *graph.Node {
	if len(slot.Refs) == 0 {
		im.res.skip(im.log, unresolved("%s.%s references no model", n.Type.ModelName, slot.Name), "node", n.ID, "field", slot.Name)
		return nil
	}
	part := im.partition(slot.Refs[0])
	if idx < 0 || idx >= len(part) {
		im.res.skip(im.log, unresolved("%s.%s: index %d out of range for %s (%d items)", n.Type.ModelName, slot.Name, idx, slot.Refs[0], len(part)),
			"node", n.ID, "field", slot.Name, "index", idx)
		return nil
	}
	return part[idx].node
}

// embed materializes a nested object as a node of the slot's model. For a
// slot referencing several models the object's "type" key picks one.
func (im *importer) embed(slot nodetype.Slot, obj map[string]any) *graph.Node {
	if len(slot.Refs) == 0 {
		im.res.skip(im.log, unresolved("field %s references no model", slot.Name), "field", slot.Name)
		return nil
	}
	model := slot.Refs[0]
	if tag, ok := obj["type"].(string); ok && len(slot.Refs) > 1 {
		for _, ref := range slot.Refs {
			t, found := im.g.Catalogue().Lookup(im.mapping.Schema, ref)
			if found && (t.WorkflowType == tag || t.ModelName == tag) {
				model = ref
				break
			}
		}
	}
	im.embedded++
	n := im.newNode(model, Position(-1, im.embedded))
	if n == nil {
		return nil
	}
	im.populate(n, obj)
	return n
}

func (im *importer) connect(src, dst *graph.Node, slot int, key string) {
	if _, err := im.g.ConnectIndex(src.ID, 0, dst.ID, slot, key); err != nil {
		im.res.skip(im.log, err, "node", dst.ID, "field", dst.Type.Inputs[slot].Name)
		return
	}
	im.res.Links++
}

// wireRoot creates the root instance and connects every document field to
// its slot.
func (im *importer) wireRoot(doc Document, order []string) {
	root := im.newNode(im.mapping.Root.ModelName, Position(len(order)+1, 0))
	if root == nil {
		return
	}
	for _, name := range order {
		info, ok := im.mapping.Field(name)
		if !ok || !info.Declared {
			continue
		}
		i, slot, ok := root.Type.Input(name)
		if !ok {
			continue
		}
		val := doc[name]
		switch info.Kind {
		case FieldScalar:
			if slot.Native {
				im.setScalar(root, *slot, val)
			} else {
				im.res.skip(im.log, unresolved("root field %s is neither native nor a model reference", name), "field", name)
			}
		case FieldReference:
			if n, ok := im.refs[name]; ok {
				im.connect(n, root, i, "")
			} else if idx, ok := asIndex(val); ok {
				if src := im.resolveIndex(root, *slot, idx); src != nil {
					im.connect(src, root, i, "")
				}
			} else if group := im.groups[name]; len(group) > 0 {
				im.connect(group[0].node, root, i, "")
			}
		case FieldCollection:
			if !slot.IsMulti() {
				im.log.Debug("root collection slot is single, not wired", "field", name)
				continue
			}
			for _, p := range im.groups[name] {
				im.connect(p.node, root, i, "")
			}
		}
	}
}

// asIndex reports whether v is a non-negative integer index that fits in an
// int.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		if n >= 0 && n <= math.MaxInt {
			return int(n), true
		}
	case uint64:
		if n <= math.MaxInt {
			return int(n), true
		}
	case float64:
		if n >= 0 && n < 1<<53 && n == math.Trunc(n) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil && i >= 0 && i <= math.MaxInt {
			return int(i), true
		}
	}
	return 0, false
}
