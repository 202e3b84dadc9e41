// Package export renders a graph for people and tools: a Mermaid diagram and
// a JSON summary with materialized records.
package export

import (
	"time"

	"github.com/dusk-indust/schemagraph/internal/graph"
)

// GraphExport is the top-level JSON summary of a graph.
type GraphExport struct {
	Schema     string            `json:"schema,omitempty"`
	ExportedAt string            `json:"exportedAt"`
	Stats      *graph.GraphStats `json:"stats"`
	Nodes      []NodeExport      `json:"nodes"`
	Links      []*graph.Link     `json:"links"`
}

// NodeExport describes one node and its current record.
type NodeExport struct {
	ID       int            `json:"id"`
	Type     string         `json:"type"`
	Model    string         `json:"model"`
	Position graph.Position `json:"position"`
	Record   map[string]any `json:"record"`
}

// ExportGraph executes every node and summarizes the graph. An empty
// schemaName includes every schema.
func ExportGraph(g *graph.Graph, schemaName string) *GraphExport {
	g.ExecuteAll()

	out := &GraphExport{
		Schema:     schemaName,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Stats:      g.Stats(),
		Nodes:      []NodeExport{},
		Links:      []*graph.Link{},
	}
	included := make(map[int]bool)
	for _, n := range g.Nodes() {
		if schemaName != "" && n.Type.SchemaName != schemaName {
			continue
		}
		included[n.ID] = true
		out.Nodes = append(out.Nodes, NodeExport{
			ID:       n.ID,
			Type:     n.Type.WorkflowType,
			Model:    n.Type.Key(),
			Position: n.Position,
			Record:   graph.Materialize(n.Record()),
		})
	}
	for _, l := range g.Links() {
		if included[l.Source] && included[l.Target] {
			out.Links = append(out.Links, l)
		}
	}
	return out
}
