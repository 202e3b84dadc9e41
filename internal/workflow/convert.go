package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/graph"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

const (
	gridColumns = 8
	gridWidth   = 300.0
	gridHeight  = 150.0
)

// ResolveType finds the node type a wire "type" tag names. A model's own
// "type" constant is tried first, then snake_case and PascalCase guesses
// against the catalogue.
func ResolveType(c *nodetype.Catalogue, schemaName, tag string) (*nodetype.NodeType, bool) {
	if tag == "" {
		return nil, false
	}
	types := c.Types(schemaName)
	for _, t := range types {
		if v, ok := t.Constants[typeKey].(string); ok && v == tag {
			return t, true
		}
	}
	pascal := nodetype.PascalCase(tag)
	for _, name := range []string{tag, pascal, pascal + "Config"} {
		if t, ok := c.Lookup(schemaName, name); ok {
			return t, true
		}
	}
	for _, t := range types {
		if nodetype.SnakeCase(t.ModelName) == tag || strings.EqualFold(t.ModelName, tag) {
			return t, true
		}
	}
	return nil, false
}

// Export writes schemaName's nodes and the links between them. Each node
// carries the native values of its unlinked input slots; linked slots are
// expressed as edges.
func Export(g *graph.Graph, schemaName string, opts ...Option) (*Document, *Result, error) {
	o := newOptions(opts)
	log := o.log.With("schema", schemaName)
	if len(g.Catalogue().Types(schemaName)) == 0 {
		return nil, nil, fmt.Errorf("workflow: unknown schema %q", schemaName)
	}
	g.ExecuteAll()

	res := &Result{}
	doc := &Document{Nodes: []Node{}, Edges: []Edge{}}
	index := make(map[int]int)
	for _, n := range g.Nodes() {
		if n.Type.SchemaName != schemaName {
			continue
		}
		wire := Node{typeKey: n.Type.WorkflowType}
		fields := n.Record().Fields
		for i, slot := range n.Type.Inputs {
			if !slot.Native || len(n.InputLinks(i)) > 0 {
				continue
			}
			if v, ok := fields[slot.Name]; ok {
				wire[slot.Name] = v
			}
		}
		wire[extraKey] = map[string]any{
			"id":  n.ID,
			"pos": []any{n.Position.X, n.Position.Y},
		}
		index[n.ID] = len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, wire)
		res.Nodes++
	}

	for _, l := range g.Links() {
		src, okSrc := index[l.Source]
		dst, okDst := index[l.Target]
		if !okSrc || !okDst {
			log.Debug("link leaves the schema, not exported", "link", l.ID)
			continue
		}
		s, _ := g.Node(l.Source)
		d, _ := g.Node(l.Target)
		target := d.Type.Inputs[l.TargetSlot].Name
		if l.Key != "" {
			target += "." + l.Key
		}
		doc.Edges = append(doc.Edges, Edge{
			Source:     src,
			Target:     dst,
			SourceSlot: s.Type.Outputs[l.SourceSlot].Name,
			TargetSlot: target,
		})
		res.Edges++
	}
	log.Debug("exported workflow", "nodes", res.Nodes, "edges", res.Edges)
	return doc, res, nil
}

// Import adds doc's nodes and edges to g under schemaName. Nodes of unknown
// type are skipped but keep their index; edges touching them, dangling
// indexes and rejected links are skipped too.
func Import(g *graph.Graph, schemaName string, doc *Document, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	log := o.log.With("schema", schemaName)
	c := g.Catalogue()
	if len(c.Types(schemaName)) == 0 {
		return nil, fmt.Errorf("workflow: unknown schema %q", schemaName)
	}

	res := &Result{}
	nodes := make([]*graph.Node, len(doc.Nodes))
	for i, wire := range doc.Nodes {
		tag, _ := wire[typeKey].(string)
		t, ok := ResolveType(c, schemaName, tag)
		if !ok {
			res.skip(log, fmt.Errorf("node %d type %q: %w", i, tag, ErrUnknownNodeType), "index", i, "type", tag)
			continue
		}
		n := g.AddNode(t, position(wire, i))
		nodes[i] = n
		res.Nodes++

		keys := make([]string, 0, len(wire))
		for k := range wire {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == typeKey || k == extraKey {
				continue
			}
			_, slot, ok := t.Input(k)
			if !ok || !slot.Native {
				log.Debug("ignoring field", "index", i, "field", k)
				continue
			}
			if err := g.SetValue(n.ID, k, wire[k]); err != nil {
				res.skip(log, err, "index", i, "field", k)
			}
		}
	}

	for j, e := range doc.Edges {
		src, err := endpoint(nodes, e.Source)
		if err != nil {
			res.skip(log, fmt.Errorf("edge %d source: %w", j, err), "edge", j)
			continue
		}
		dst, err := endpoint(nodes, e.Target)
		if err != nil {
			res.skip(log, fmt.Errorf("edge %d target: %w", j, err), "edge", j)
			continue
		}
		if _, err := g.Connect(src.ID, e.SourceSlot, dst.ID, e.TargetSlot); err != nil {
			res.skip(log, fmt.Errorf("edge %d: %w", j, err), "edge", j)
			continue
		}
		res.Edges++
	}

	g.ExecuteAll()
	log.Info("imported workflow", "nodes", res.Nodes, "edges", res.Edges, "skipped", res.SkippedCount())
	return res, nil
}

func endpoint(nodes []*graph.Node, idx int) (*graph.Node, error) {
	if idx < 0 || idx >= len(nodes) {
		return nil, fmt.Errorf("index %d out of range: %w", idx, configdoc.ErrUnresolvedReference)
	}
	if nodes[idx] == nil {
		return nil, fmt.Errorf("index %d: %w", idx, ErrUnknownNodeType)
	}
	return nodes[idx], nil
}

// position reads extra.pos, falling back to a grid slot for index i.
func position(wire Node, i int) graph.Position {
	if extra, ok := wire[extraKey].(map[string]any); ok {
		if pos, ok := extra["pos"].([]any); ok && len(pos) == 2 {
			x, okX := number(pos[0])
			y, okY := number(pos[1])
			if okX && okY {
				return graph.Position{X: x, Y: y}
			}
		}
	}
	return graph.Position{
		X: float64(i%gridColumns) * gridWidth,
		Y: float64(i/gridColumns) * gridHeight,
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
