package configdoc

import (
	"github.com/hashicorp/go-hclog"

	"github.com/dusk-indust/schemagraph/internal/graph"
)

// Export builds the config document for schemaName's nodes in g. Nodes are
// grouped per model into collections in creation order; any record embedded
// in another is replaced by its index within its own collection. The root
// instance contributes its explicitly set scalars and linked single
// references at top level.
func Export(g *graph.Graph, schemaName string, opts ...Option) (Document, *Result, error) {
	o := newOptions(opts)
	log := o.log.With("schema", schemaName)

	mapping, err := NewFieldMapping(g.Catalogue(), schemaName)
	if err != nil {
		return nil, nil, err
	}
	g.ExecuteAll()

	res := &Result{}
	index := make(map[int]int)
	partitions := make(map[string][]*graph.Node)
	var models []string
	var root *graph.Node
	for _, n := range g.Nodes() {
		if n.Type.SchemaName != schemaName {
			continue
		}
		if n.Type.Root {
			if root == nil {
				root = n
			}
			continue
		}
		model := n.Type.ModelName
		if _, ok := partitions[model]; !ok {
			models = append(models, model)
		}
		index[n.ID] = len(partitions[model])
		partitions[model] = append(partitions[model], n)
	}

	w := &rewriter{index: index}
	doc := make(Document)
	for _, model := range models {
		field, ok := mapping.FieldFor(model)
		if !ok {
			res.skip(log, unresolved("model %s has no document field", model), "model", model)
			continue
		}
		nodes := partitions[model]
		records := make([]any, 0, len(nodes))
		for _, n := range nodes {
			records = append(records, w.record(n.Record()))
			res.Nodes++
		}
		info, _ := mapping.Field(field)
		if info.Kind == FieldReference && len(records) == 1 {
			doc[field] = records[0]
			continue
		}
		doc[field] = records
	}

	if root != nil {
		res.Nodes++
		exportRoot(g, root, mapping, index, doc, res, log)
	}
	log.Debug("exported config", "fields", len(doc), "nodes", res.Nodes, "skipped", res.SkippedCount())
	return doc, res, nil
}

func exportRoot(g *graph.Graph, root *graph.Node, mapping *FieldMapping, index map[int]int, doc Document, res *Result, log hclog.Logger) {
	for i, slot := range root.Type.Inputs {
		info, ok := mapping.Field(slot.Name)
		if !ok {
			continue
		}
		switch info.Kind {
		case FieldScalar:
			v, set := root.Value(i)
			if !set || v == nil || v == "" {
				continue
			}
			if _, taken := doc[slot.Name]; taken {
				log.Warn("root value shadowed by collection", "field", slot.Name)
				continue
			}
			doc[slot.Name] = v
		case FieldReference:
			if info.MergeInto == "" {
				// The field holds the model's collection itself.
				continue
			}
			links := g.IncomingLinks(root.ID, i)
			if len(links) == 0 {
				continue
			}
			idx, ok := index[links[0].Source]
			if !ok {
				res.skip(log, unresolved("root field %s links to node %d outside any collection", slot.Name, links[0].Source), "field", slot.Name)
				continue
			}
			doc[slot.Name] = idx
			res.Links++
		}
	}
}

// rewriter replaces embedded records by their collection index.
type rewriter struct {
	index map[int]int
	seen  map[int]bool
}

func (w *rewriter) record(r *graph.Record) map[string]any {
	out := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = w.value(v)
	}
	return out
}

func (w *rewriter) value(v any) any {
	switch x := v.(type) {
	case *graph.Record:
		if idx, ok := w.index[x.NodeID]; ok {
			return idx
		}
		// A record outside every collection (the root, or another schema's
		// node) is inlined, once per path.
		if w.seen == nil {
			w.seen = make(map[int]bool)
		}
		if w.seen[x.NodeID] {
			return nil
		}
		w.seen[x.NodeID] = true
		defer delete(w.seen, x.NodeID)
		return w.record(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = w.value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = w.value(e)
		}
		return out
	default:
		return v
	}
}
