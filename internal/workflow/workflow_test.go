package workflow

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/graph"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
	"github.com/dusk-indust/schemagraph/internal/schema"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func appCatalogue(t *testing.T) *nodetype.Catalogue {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/schemas/app.py")
	require.NoError(t, err)
	s, err := schema.Parse(context.Background(), "app", string(data))
	require.NoError(t, err)
	c := nodetype.NewCatalogue()
	c.Register("app", s)
	return c
}

func mustNode(t *testing.T, g *graph.Graph, model string) *graph.Node {
	t.Helper()
	n, err := g.CreateNode("app", model)
	require.NoError(t, err)
	return n
}

func mustConnect(t *testing.T, g *graph.Graph, src *graph.Node, dst *graph.Node, slot string) {
	t.Helper()
	_, err := g.Connect(src.ID, "", dst.ID, slot)
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Type resolution
// ---------------------------------------------------------------------------

func TestResolveType(t *testing.T) {
	c := appCatalogue(t)
	tests := []struct {
		tag   string
		model string
	}{
		{"backend", "Backend"},
		{"route", "Route"},
		{"retry_policy", "RetryPolicy"},
		{"RetryPolicy", "RetryPolicy"},
		{"app", "App"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			nt, ok := ResolveType(c, "app", tt.tag)
			require.True(t, ok)
			assert.Equal(t, tt.model, nt.ModelName)
		})
	}

	_, ok := ResolveType(c, "app", "gadget")
	assert.False(t, ok)
	_, ok = ResolveType(c, "app", "")
	assert.False(t, ok)
}

func TestResolveType_ConfigSuffixGuess(t *testing.T) {
	s, err := schema.Parse(context.Background(), "x", `
class ServerConfig(BaseModel):
    port: int = 80
`)
	require.NoError(t, err)
	c := nodetype.NewCatalogue()
	c.Register("x", s)

	nt, ok := ResolveType(c, "x", "server")
	require.True(t, ok)
	assert.Equal(t, "ServerConfig", nt.ModelName)
}

// ---------------------------------------------------------------------------
// Export / Import
// ---------------------------------------------------------------------------

func TestExport_NodesAndEdges(t *testing.T) {
	g := graph.New(appCatalogue(t))
	b := mustNode(t, g, "Backend")
	require.NoError(t, g.SetValue(b.ID, "name", "api"))
	r := mustNode(t, g, "Route")
	mustConnect(t, g, b, r, "backend")
	mustConnect(t, g, b, r, "fallbacks")

	doc, res, err := Export(g, "app")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Nodes)
	require.Len(t, doc.Nodes, 2)

	assert.Equal(t, "backend", doc.Nodes[0]["type"])
	assert.Equal(t, "api", doc.Nodes[0]["name"])
	assert.Equal(t, 30, doc.Nodes[0]["timeout"])
	_, hasRetry := doc.Nodes[0]["retry"]
	assert.False(t, hasRetry, "model slots travel as edges")

	_, hasBackend := doc.Nodes[1]["backend"]
	assert.False(t, hasBackend)
	assert.Equal(t, []Edge{
		{Source: 0, Target: 1, SourceSlot: "self", TargetSlot: "backend"},
		{Source: 0, Target: 1, SourceSlot: "self", TargetSlot: "fallbacks"},
	}, doc.Edges)
}

func TestRoundTrip_PreservesRecords(t *testing.T) {
	c := appCatalogue(t)
	g := graph.New(c)
	b := mustNode(t, g, "Backend")
	require.NoError(t, g.SetValue(b.ID, "name", "api"))
	require.NoError(t, g.SetValue(b.ID, "labels", `{"tier":"gold"}`))
	r := mustNode(t, g, "Route")
	require.NoError(t, g.SetValue(r.ID, "path", "/v1"))
	mustConnect(t, g, b, r, "backend")
	require.NoError(t, g.SetPosition(r.ID, graph.Position{X: 40, Y: 80}))

	doc, _, err := Export(g, "app")
	require.NoError(t, err)

	g2 := graph.New(c)
	res, err := Import(g2, "app", doc)
	require.NoError(t, err)
	assert.Zero(t, res.SkippedCount())
	assert.Equal(t, 1, res.Edges)

	nodes := g2.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, graph.Position{X: 40, Y: 80}, nodes[1].Position)
	want := graph.Materialize(r.Record())
	got := graph.Materialize(nodes[1].Record())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("route record mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_UnknownTypeKeepsIndex(t *testing.T) {
	g := graph.New(appCatalogue(t))
	doc := &Document{
		Nodes: []Node{
			{"type": "gadget"},
			{"type": "backend", "name": "api"},
			{"type": "route", "path": "/x", "bogus": 1},
		},
		Edges: []Edge{
			{Source: 0, Target: 2, TargetSlot: "backend"},
			{Source: 1, Target: 2, TargetSlot: "backend"},
			{Source: 1, Target: 7, TargetSlot: "backend"},
			{Source: 1, Target: 2, TargetSlot: "path"},
		},
	}
	res, err := Import(g, "app", doc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Nodes)
	assert.Equal(t, 1, res.Edges)
	require.Equal(t, 4, res.SkippedCount())
	assert.ErrorIs(t, res.Skipped.Errors[0], ErrUnknownNodeType)
	assert.ErrorIs(t, res.Skipped.Errors[1], ErrUnknownNodeType)
	assert.ErrorIs(t, res.Skipped.Errors[2], configdoc.ErrUnresolvedReference)
	assert.ErrorIs(t, res.Skipped.Errors[3], graph.ErrTypeMismatch)

	route := g.NodesOf("app", "Route")[0]
	rec := graph.Materialize(route.Record())
	assert.Equal(t, "api", rec["backend"].(map[string]any)["name"])
	assert.Equal(t, "/x", rec["path"])
}

func TestImport_KeyedTargetSlot(t *testing.T) {
	s, err := schema.Parse(context.Background(), "k", `
class Tool(BaseModel):
    name: str

class Agent(BaseModel):
    tools: Annotated[Dict[str, Tool], FieldRole.MULTI_INPUT]
`)
	require.NoError(t, err)
	c := nodetype.NewCatalogue()
	c.Register("k", s)
	g := graph.New(c)

	doc := &Document{
		Nodes: []Node{{"type": "tool", "name": "search"}, {"type": "agent"}},
		Edges: []Edge{{Source: 0, Target: 1, SourceSlot: "self", TargetSlot: "tools.web"}},
	}
	res, err := Import(g, "k", doc)
	require.NoError(t, err)
	assert.Zero(t, res.SkippedCount())

	agent := g.NodesOf("k", "Agent")[0]
	rec := graph.Materialize(agent.Record())
	assert.Equal(t, map[string]any{"web": map[string]any{"name": "search"}}, rec["tools"])

	out, _, err := Export(g, "k")
	require.NoError(t, err)
	assert.Equal(t, "tools.web", out.Edges[0].TargetSlot)
}

func TestUnknownSchema(t *testing.T) {
	g := graph.New(appCatalogue(t))
	_, _, err := Export(g, "nope")
	assert.Error(t, err)
	_, err = Import(g, "nope", &Document{})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func TestDecode_JSON(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{
  "nodes": [{"type": "backend", "timeout": 5, "extra": {"pos": [10, 20.5]}}],
  "edges": [{"source": 0, "target": 0, "target_slot": "retry"}]
}`), configdoc.FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, 5, doc.Nodes[0]["timeout"])
	assert.Equal(t, graph.Position{X: 10, Y: 20.5}, position(doc.Nodes[0], 0))
	assert.Equal(t, "retry", doc.Edges[0].TargetSlot)
	assert.Empty(t, doc.Edges[0].SourceSlot)
}

func TestEncodeDecode_YAML(t *testing.T) {
	in := &Document{
		Nodes: []Node{{"type": "backend", "name": "api"}},
		Edges: []Edge{{Source: 0, Target: 0, SourceSlot: "self", TargetSlot: "retry"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in, configdoc.FormatYAML))
	out, err := Decode(&buf, configdoc.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPosition_GridFallback(t *testing.T) {
	assert.Equal(t, graph.Position{X: 300, Y: 150}, position(Node{}, 9))
}
