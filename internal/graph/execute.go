package graph

import (
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

// pass memoizes one evaluation sweep. A node that is reached again while it
// is still being evaluated (a cycle) yields its record as it stands.
type pass struct {
	g          *Graph
	done       map[int]bool
	inProgress map[int]bool
}

func (g *Graph) newPass() *pass {
	return &pass{g: g, done: make(map[int]bool), inProgress: make(map[int]bool)}
}

// Execute evaluates a node's record, evaluating linked sources first.
// Every output slot carries the same record.
func (g *Graph) Execute(id int) (*Record, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("execute %d: %w", id, ErrNodeNotFound)
	}
	return g.newPass().execute(n), nil
}

// ExecuteAll evaluates every node once, in creation order.
func (g *Graph) ExecuteAll() {
	p := g.newPass()
	for _, id := range g.order {
		p.execute(g.nodes[id])
	}
}

func (p *pass) execute(n *Node) *Record {
	if p.done[n.ID] || p.inProgress[n.ID] {
		return n.record
	}
	p.inProgress[n.ID] = true
	defer delete(p.inProgress, n.ID)

	fields := make(map[string]any, len(n.Type.Fields))
	for name, v := range n.Type.Constants {
		fields[name] = copyValue(v)
	}
	for i, slot := range n.Type.Inputs {
		if v, ok := p.slotValue(n, i, slot); ok {
			fields[slot.Name] = v
		}
	}

	n.record.Fields = fields
	p.done[n.ID] = true
	return n.record
}

// slotValue computes one input slot's contribution to the record. The second
// result is false when the field is omitted.
func (p *pass) slotValue(n *Node, i int, slot nodetype.Slot) (any, bool) {
	links := n.in[i]

	if slot.IsMulti() {
		if len(links) == 0 {
			return nil, false
		}
		keyed := make(map[string]any)
		var items []any
		for _, lid := range links {
			l := p.g.links[lid]
			v := p.source(l)
			if l.Key != "" {
				keyed[l.Key] = v
				continue
			}
			items = append(items, v)
		}
		if len(keyed) > 0 {
			return keyed, true
		}
		return items, true
	}

	if len(links) > 0 {
		return p.source(p.g.links[links[0]]), true
	}
	if !slot.Native {
		return nil, false
	}
	v, ok := n.values[i]
	if !ok {
		v = slot.Default
	}
	return Coerce(slot.Kind, v, slot.Optional)
}

// source evaluates a link's source node and returns its record.
func (p *pass) source(l *Link) any {
	src, ok := p.g.nodes[l.Source]
	if !ok {
		return nil
	}
	return p.execute(src)
}

// copyValue deep-copies maps and slices so records never alias node state.
func copyValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		c, err := copystructure.Copy(v)
		if err != nil {
			return v
		}
		return c
	default:
		return v
	}
}

// Materialize returns r's fields with every embedded record replaced by its
// own materialized fields. A record reached again through a cycle becomes
// nil.
func Materialize(r *Record) map[string]any {
	return materialize(r, make(map[int]bool))
}

func materialize(r *Record, seen map[int]bool) map[string]any {
	if r == nil || seen[r.NodeID] {
		return nil
	}
	seen[r.NodeID] = true
	defer delete(seen, r.NodeID)

	out := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = materializeValue(v, seen)
	}
	return out
}

func materializeValue(v any, seen map[int]bool) any {
	switch x := v.(type) {
	case *Record:
		if m := materialize(x, seen); m != nil {
			return m
		}
		return nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = materializeValue(e, seen)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = materializeValue(e, seen)
		}
		return out
	default:
		return v
	}
}
