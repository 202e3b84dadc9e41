package graph

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/copystructure"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

// Snapshot is the persistable state of a graph: node types, positions,
// native values and links. Records are not stored; they are re-derived.
type Snapshot struct {
	Name  string      `json:"name"`
	Nodes []NodeState `json:"nodes"`
	Links []LinkState `json:"links"`
}

// NodeState is one node in a Snapshot. Values are keyed by input slot name.
type NodeState struct {
	ID     int            `json:"id"`
	Schema string         `json:"schema"`
	Model  string         `json:"model"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Values map[string]any `json:"values,omitempty"`
}

// LinkState is one link in a Snapshot, with slots named.
type LinkState struct {
	ID         int    `json:"id"`
	Source     int    `json:"source"`
	SourceSlot string `json:"sourceSlot"`
	Target     int    `json:"target"`
	TargetSlot string `json:"targetSlot"`
	Key        string `json:"key,omitempty"`
}

// Snapshot captures the graph under name. Native values are deep-copied.
func (g *Graph) Snapshot(name string) (*Snapshot, error) {
	snap := &Snapshot{Name: name}
	for _, n := range g.Nodes() {
		st := NodeState{
			ID:     n.ID,
			Schema: n.Type.SchemaName,
			Model:  n.Type.ModelName,
			X:      n.Position.X,
			Y:      n.Position.Y,
		}
		if len(n.values) > 0 {
			st.Values = make(map[string]any, len(n.values))
			for i, v := range n.values {
				c, err := copystructure.Copy(v)
				if err != nil {
					return nil, fmt.Errorf("snapshot node %d slot %s: %w", n.ID, n.Type.Inputs[i].Name, err)
				}
				st.Values[n.Type.Inputs[i].Name] = c
			}
		}
		snap.Nodes = append(snap.Nodes, st)
	}
	for _, l := range g.Links() {
		src := g.nodes[l.Source]
		dst := g.nodes[l.Target]
		snap.Links = append(snap.Links, LinkState{
			ID:         l.ID,
			Source:     l.Source,
			SourceSlot: src.Type.Outputs[l.SourceSlot].Name,
			Target:     l.Target,
			TargetSlot: dst.Type.Inputs[l.TargetSlot].Name,
			Key:        l.Key,
		})
	}
	return snap, nil
}

// Restore rebuilds a graph from snap, keeping node ids. Nodes whose type is
// no longer in the catalogue, and links that no longer fit, are skipped and
// reported in the returned multierror; the graph is still usable.
func Restore(c *nodetype.Catalogue, snap *Snapshot, opts ...Option) (*Graph, error) {
	g := New(c, opts...)
	var skipped *multierror.Error

	nodes := append([]NodeState(nil), snap.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, st := range nodes {
		t, ok := c.Lookup(st.Schema, st.Model)
		if !ok {
			skipped = multierror.Append(skipped, fmt.Errorf("node %d: unknown node type %s", st.ID, nodetype.Key(st.Schema, st.Model)))
			continue
		}
		n := g.newNode(st.ID, t, Position{X: st.X, Y: st.Y})
		for name, v := range st.Values {
			i, _, ok := t.Input(name)
			if !ok {
				skipped = multierror.Append(skipped, fmt.Errorf("node %d: %s.%s: %w", st.ID, st.Model, name, ErrSlotNotFound))
				continue
			}
			n.values[i] = v
		}
	}

	links := append([]LinkState(nil), snap.Links...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	for _, ls := range links {
		target := ls.TargetSlot
		if ls.Key != "" {
			target += "." + ls.Key
		}
		if _, err := g.Connect(ls.Source, ls.SourceSlot, ls.Target, target); err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("link %d: %w", ls.ID, err))
		}
	}

	g.ExecuteAll()
	if err := skipped.ErrorOrNil(); err != nil {
		g.log.Warn("snapshot restored with skipped items", "name", snap.Name, "skipped", len(skipped.Errors))
		return g, err
	}
	g.log.Debug("snapshot restored", "name", snap.Name, "nodes", len(g.nodes), "links", len(g.links))
	return g, nil
}
