package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/schemagraph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph LR diagram of a graph. Nodes are
// grouped by model; links become arrows labeled with the target slot. An
// empty schemaName includes every schema.
func GenerateMermaid(g *graph.Graph, schemaName string) string {
	var models []string
	byModel := make(map[string][]*graph.Node)
	included := make(map[int]bool)
	for _, n := range g.Nodes() {
		if schemaName != "" && n.Type.SchemaName != schemaName {
			continue
		}
		key := n.Type.Key()
		if _, ok := byModel[key]; !ok {
			models = append(models, key)
		}
		byModel[key] = append(byModel[key], n)
		included[n.ID] = true
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for i, key := range models {
		sb.WriteString(fmt.Sprintf("  subgraph M%d[\"%.40s\"]\n", i, key))
		for _, n := range byModel[key] {
			sb.WriteString(fmt.Sprintf("    N%d[\"%s\"]\n", n.ID, label(n)))
		}
		sb.WriteString("  end\n")
	}

	for _, l := range g.Links() {
		if !included[l.Source] || !included[l.Target] {
			continue
		}
		d, _ := g.Node(l.Target)
		slot := d.Type.Inputs[l.TargetSlot].Name
		if l.Key != "" {
			slot += "." + l.Key
		}
		sb.WriteString(fmt.Sprintf("  N%d -->|%s| N%d\n", l.Source, slot, l.Target))
	}

	return sb.String()
}

// label names a node by its model and id, plus its "name" field when set.
func label(n *graph.Node) string {
	s := fmt.Sprintf("%s #%d", n.Type.ModelName, n.ID)
	if rec := n.Record(); rec != nil {
		if name, ok := rec.Fields["name"].(string); ok && name != "" {
			s += ": " + name
		}
	}
	return strings.ReplaceAll(s, `"`, "'")
}
