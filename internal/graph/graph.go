// Package graph holds node instances and typed links between their slots,
// evaluates node records, and persists graph snapshots.
//
// A Graph is not safe for concurrent mutation; callers that share one across
// goroutines serialize access themselves (see editor.Workspace).
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
	"github.com/dusk-indust/schemagraph/internal/typeexpr"
)

// Graph owns node instances and links.
type Graph struct {
	catalogue *nodetype.Catalogue
	log       hclog.Logger

	nodes    map[int]*Node
	order    []int
	links    map[int]*Link
	nextNode int
	nextLink int
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the graph's logger.
func WithLogger(log hclog.Logger) Option {
	return func(g *Graph) {
		if log != nil {
			g.log = log
		}
	}
}

// New returns an empty graph whose node types come from c.
func New(c *nodetype.Catalogue, opts ...Option) *Graph {
	g := &Graph{
		catalogue: c,
		log:       hclog.NewNullLogger(),
		nodes:     make(map[int]*Node),
		links:     make(map[int]*Link),
		nextNode:  1,
		nextLink:  1,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Catalogue returns the node type catalogue.
func (g *Graph) Catalogue() *nodetype.Catalogue { return g.catalogue }

// Logger returns the graph's logger.
func (g *Graph) Logger() hclog.Logger { return g.log }

// ---------- Nodes ----------

// CreateNode instantiates the node type schemaName.modelName.
func (g *Graph) CreateNode(schemaName, modelName string) (*Node, error) {
	t, ok := g.catalogue.Lookup(schemaName, modelName)
	if !ok {
		return nil, fmt.Errorf("create node: unknown node type %s", nodetype.Key(schemaName, modelName))
	}
	return g.AddNode(t, Position{}), nil
}

// AddNode instantiates t at pos.
func (g *Graph) AddNode(t *nodetype.NodeType, pos Position) *Node {
	return g.newNode(g.nextNode, t, pos)
}

func (g *Graph) newNode(id int, t *nodetype.NodeType, pos Position) *Node {
	n := &Node{
		ID:       id,
		Type:     t,
		Position: pos,
		values:   make(map[int]any),
		in:       make([][]int, len(t.Inputs)),
		out:      make([][]int, len(t.Outputs)),
		record: &Record{
			NodeID: id,
			Schema: t.SchemaName,
			Model:  t.ModelName,
		},
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	if id >= g.nextNode {
		g.nextNode = id + 1
	}
	return n
}

// Node returns a live node.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodesOf returns the nodes of one model in creation order.
func (g *Graph) NodesOf(schemaName, modelName string) []*Node {
	var out []*Node
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Type.SchemaName == schemaName && n.Type.ModelName == modelName {
			out = append(out, n)
		}
	}
	return out
}

// RemoveNode detaches every link touching the node, then removes it.
func (g *Graph) RemoveNode(id int) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("remove node %d: %w", id, ErrNodeNotFound)
	}
	for _, slots := range [][][]int{n.in, n.out} {
		for _, ids := range slots {
			for _, lid := range append([]int(nil), ids...) {
				g.detach(lid)
			}
		}
	}
	delete(g.nodes, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every node of schemaName. An empty name clears the graph.
func (g *Graph) Clear(schemaName string) {
	for _, n := range g.Nodes() {
		if schemaName == "" || n.Type.SchemaName == schemaName {
			_ = g.RemoveNode(n.ID)
		}
	}
}

// SetPosition moves a node.
func (g *Graph) SetPosition(id int, pos Position) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set position %d: %w", id, ErrNodeNotFound)
	}
	n.Position = pos
	return nil
}

// SetValue stores a native value on a named input slot. Values set on
// linked slots are kept but ignored while the link exists.
func (g *Graph) SetValue(id int, slot string, v any) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set value %d: %w", id, ErrNodeNotFound)
	}
	i, _, ok := n.Type.Input(slot)
	if !ok {
		return fmt.Errorf("set value %s.%s: %w", n.Type.ModelName, slot, ErrSlotNotFound)
	}
	n.values[i] = v
	return nil
}

// ---------- Links ----------

// Link returns a live link.
func (g *Graph) Link(id int) (*Link, bool) {
	l, ok := g.links[id]
	return l, ok
}

// Links returns every link ordered by id.
func (g *Graph) Links() []*Link {
	out := make([]*Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Connect links an output slot to an input slot by name. An empty source
// slot means the self slot. A target name of the form "slot.key" on a multi
// slot records key on the link; single slots drop the key.
func (g *Graph) Connect(src int, srcSlot string, dst int, dstSlot string) (*Link, error) {
	s, ok := g.nodes[src]
	if !ok {
		return nil, fmt.Errorf("connect: source %d: %w", src, ErrNodeNotFound)
	}
	d, ok := g.nodes[dst]
	if !ok {
		return nil, fmt.Errorf("connect: target %d: %w", dst, ErrNodeNotFound)
	}
	if srcSlot == "" {
		srcSlot = nodetype.SelfSlot
	}
	si, _, ok := s.Type.Output(srcSlot)
	if !ok {
		return nil, fmt.Errorf("connect: %s output %q: %w", s.Type.ModelName, srcSlot, ErrSlotNotFound)
	}
	di, key, ok := resolveInput(d.Type, dstSlot)
	if !ok {
		return nil, fmt.Errorf("connect: %s input %q: %w", d.Type.ModelName, dstSlot, ErrSlotNotFound)
	}
	return g.ConnectIndex(src, si, dst, di, key)
}

// resolveInput finds an input slot, splitting a ".key" suffix when the full
// name is not itself a slot.
func resolveInput(t *nodetype.NodeType, name string) (int, string, bool) {
	if i, _, ok := t.Input(name); ok {
		return i, "", true
	}
	base, key, found := strings.Cut(name, ".")
	if !found {
		return -1, "", false
	}
	i, _, ok := t.Input(base)
	return i, key, ok
}

// ConnectIndex links output slot srcSlot of src to input slot dstSlot of dst.
// The producer type must be compatible with the consumer's link type. A
// single slot keeps only the newest link; a multi slot accumulates them.
func (g *Graph) ConnectIndex(src, srcSlot, dst, dstSlot int, key string) (*Link, error) {
	s, ok := g.nodes[src]
	if !ok {
		return nil, fmt.Errorf("connect: source %d: %w", src, ErrNodeNotFound)
	}
	d, ok := g.nodes[dst]
	if !ok {
		return nil, fmt.Errorf("connect: target %d: %w", dst, ErrNodeNotFound)
	}
	if srcSlot < 0 || srcSlot >= len(s.Type.Outputs) {
		return nil, fmt.Errorf("connect: %s output %d: %w", s.Type.ModelName, srcSlot, ErrSlotNotFound)
	}
	if dstSlot < 0 || dstSlot >= len(d.Type.Inputs) {
		return nil, fmt.Errorf("connect: %s input %d: %w", d.Type.ModelName, dstSlot, ErrSlotNotFound)
	}
	producer := s.Type.Outputs[srcSlot]
	consumer := d.Type.Inputs[dstSlot]
	if !typeexpr.Compatible(producer.Type, consumer.Type) {
		return nil, &TypeMismatchError{Producer: producer.Type, Consumer: consumer.Type}
	}

	if !consumer.IsMulti() {
		for _, old := range d.in[dstSlot] {
			g.detach(old)
		}
		key = ""
	}

	l := &Link{
		ID:         g.nextLink,
		Source:     src,
		SourceSlot: srcSlot,
		Target:     dst,
		TargetSlot: dstSlot,
		Type:       producer.Type,
		Key:        key,
	}
	g.nextLink++
	g.links[l.ID] = l
	s.out[srcSlot] = append(s.out[srcSlot], l.ID)
	d.in[dstSlot] = append(d.in[dstSlot], l.ID)
	return l, nil
}

// RemoveLink detaches a link from both endpoints.
func (g *Graph) RemoveLink(id int) error {
	if _, ok := g.links[id]; !ok {
		return fmt.Errorf("remove link %d: %w", id, ErrLinkNotFound)
	}
	g.detach(id)
	return nil
}

func (g *Graph) detach(id int) {
	l, ok := g.links[id]
	if !ok {
		return
	}
	delete(g.links, id)
	if s, ok := g.nodes[l.Source]; ok {
		s.out[l.SourceSlot] = removeID(s.out[l.SourceSlot], id)
	}
	if d, ok := g.nodes[l.Target]; ok {
		d.in[l.TargetSlot] = removeID(d.in[l.TargetSlot], id)
	}
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// IncomingLinks returns the links into a node's input slot in insertion order.
func (g *Graph) IncomingLinks(id, slot int) []*Link {
	n, ok := g.nodes[id]
	if !ok || slot < 0 || slot >= len(n.in) {
		return nil
	}
	out := make([]*Link, 0, len(n.in[slot]))
	for _, lid := range n.in[slot] {
		out = append(out, g.links[lid])
	}
	return out
}

// Stats counts nodes per model and links.
func (g *Graph) Stats() *GraphStats {
	st := &GraphStats{
		NodeCount: len(g.nodes),
		LinkCount: len(g.links),
		ByModel:   make(map[string]int),
	}
	for _, n := range g.nodes {
		st.ByModel[n.Type.Key()]++
	}
	return st
}
