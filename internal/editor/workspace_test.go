package editor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/schemagraph/internal/config"
	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/schemas/app.py")
	require.NoError(t, err)
	return string(data)
}

func appWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w := New()
	t.Cleanup(func() { _ = w.Close() })
	_, err := w.LoadSchema(context.Background(), "app", readFixture(t))
	require.NoError(t, err)
	return w
}

func sampleConfig() configdoc.Document {
	return configdoc.Document{
		"name": "demo",
		"backends": []any{
			map[string]any{"name": "api", "url": "http://api"},
			map[string]any{"name": "web", "url": "http://web"},
		},
		"routes": []any{
			map[string]any{"name": "r1", "backend": 1},
		},
	}
}

// ---------------------------------------------------------------------------
// Schemas
// ---------------------------------------------------------------------------

func TestWorkspace_LoadSchema(t *testing.T) {
	w := appWorkspace(t)
	assert.NotEmpty(t, w.ID())
	types := w.NodeTypes("app")
	require.Len(t, types, 5)
	assert.Equal(t, "App", types[4].ModelName)
	assert.True(t, types[4].Root)
}

func TestWorkspace_LoadSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schemas", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "app.py"), []byte(readFixture(t)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "nested", "tools.py"), []byte(`
class Tool(BaseModel):
    name: str
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "notes.txt"), []byte("x"), 0o644))

	w := New(WithRootModels(map[string]string{"tools": "Tool"}))
	defer w.Close()
	names, err := w.LoadSchemaFiles(context.Background(), dir, []string{"schemas/**/*.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "tools"}, names)

	root, ok := w.Catalogue().Root("tools")
	require.True(t, ok, "configured root model applies")
	assert.Equal(t, "Tool", root.ModelName)
}

func TestWorkspace_LoadSchemaFilesBadPattern(t *testing.T) {
	w := New()
	defer w.Close()
	_, err := w.LoadSchemaFiles(context.Background(), t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestWorkspace_LoadSchemaFilesAlongsideLoadSchema(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".py"), []byte(readFixture(t)), 0o644))
	}
	roots := map[string]string{"a": "Backend"}
	w := New(WithRootModels(roots))
	defer w.Close()
	roots["a"] = "Route"

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := w.LoadSchemaFiles(context.Background(), dir, []string{"*.py"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := w.LoadSchema(context.Background(), "inline", readFixture(t))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	root, ok := w.Catalogue().Root("a")
	require.True(t, ok)
	assert.Equal(t, "Backend", root.ModelName, "root overrides are copied at construction")
}

func TestWorkspace_Open(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(readFixture(t)), 0o644))

	w, err := Open(context.Background(), dir, &config.ProjectConfig{Schemas: []string{"*.py"}, CacheSize: 16}, nil)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, []string{"app"}, w.Catalogue().SchemaNames())

	_, err = Open(context.Background(), dir, &config.ProjectConfig{Store: "redis"}, nil)
	assert.Error(t, err)
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "app", SchemaName("schemas/app.py"))
	assert.Equal(t, "tools", SchemaName("tools"))
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

func TestWorkspace_EditAndExecute(t *testing.T) {
	w := appWorkspace(t)

	b, err := w.CreateNode("app", "Backend", graph.Position{X: 10, Y: 20})
	require.NoError(t, err)
	assert.Equal(t, "app.Backend", b.Type)
	assert.Equal(t, "backend", b.Workflow)
	assert.Equal(t, 30, b.Record["timeout"])

	r, err := w.CreateNode("app", "Route", graph.Position{})
	require.NoError(t, err)

	require.NoError(t, w.SetValue(b.ID, "name", "api"))
	link, err := w.Connect(b.ID, "", r.ID, "backend")
	require.NoError(t, err)
	assert.Equal(t, b.ID, link.Source)

	rec, err := w.Execute(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "api", rec["backend"].(map[string]any)["name"])

	_, err = w.Connect(b.ID, "", r.ID, "path")
	assert.ErrorIs(t, err, graph.ErrTypeMismatch)

	require.NoError(t, w.Disconnect(link.ID))
	rec, err = w.Execute(r.ID)
	require.NoError(t, err)
	_, has := rec["backend"]
	assert.False(t, has)

	require.NoError(t, w.RemoveNode(b.ID))
	_, err = w.Node(b.ID)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	assert.Len(t, w.Nodes("app"), 1)

	_, err = w.CreateNode("app", "Missing", graph.Position{})
	assert.Error(t, err)
}

func TestWorkspace_ConcurrentEdits(t *testing.T) {
	w := appWorkspace(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := w.CreateNode("app", "Backend", graph.Position{})
			if assert.NoError(t, err) {
				assert.NoError(t, w.SetValue(n.ID, "name", "x"))
			}
			_ = w.Nodes("")
		}()
	}
	wg.Wait()
	assert.Len(t, w.Nodes("app"), 20)
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func TestWorkspace_ConfigRoundTrip(t *testing.T) {
	w := appWorkspace(t)

	res, err := w.ImportConfig("app", sampleConfig())
	require.NoError(t, err)
	assert.Zero(t, res.SkippedCount())
	assert.Len(t, w.Nodes("app"), 4)

	// A second import replaces the schema's nodes.
	_, err = w.ImportConfig("app", sampleConfig())
	require.NoError(t, err)
	assert.Len(t, w.Nodes("app"), 4)

	doc, _, err := w.ExportConfig("app")
	require.NoError(t, err)
	assert.Equal(t, "demo", doc["name"])
	routes := doc["routes"].([]any)
	assert.Equal(t, 1, routes[0].(map[string]any)["backend"])

	_, err = w.ImportConfig("nope", sampleConfig())
	assert.Error(t, err)
}

func TestWorkspace_WorkflowRoundTrip(t *testing.T) {
	w := appWorkspace(t)
	_, err := w.ImportConfig("app", sampleConfig())
	require.NoError(t, err)

	wf, _, err := w.ExportWorkflow("app")
	require.NoError(t, err)
	assert.Len(t, wf.Nodes, 4)

	res, err := w.ImportWorkflow("app", wf)
	require.NoError(t, err)
	assert.Zero(t, res.SkippedCount())
	assert.Len(t, w.Nodes("app"), 4)

	doc, _, err := w.ExportConfig("app")
	require.NoError(t, err)
	assert.Len(t, doc["backends"], 2)
}

func TestWorkspace_DiagramAndSummary(t *testing.T) {
	w := appWorkspace(t)
	_, err := w.ImportConfig("app", sampleConfig())
	require.NoError(t, err)

	assert.Contains(t, w.Diagram("app"), "-->|backend|")
	sum := w.Summary("app")
	assert.Len(t, sum.Nodes, 4)
	assert.NotEmpty(t, sum.Links)
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestWorkspace_Snapshots(t *testing.T) {
	ctx := context.Background()
	w := appWorkspace(t)
	_, err := w.ImportConfig("app", sampleConfig())
	require.NoError(t, err)
	before, _, err := w.ExportConfig("app")
	require.NoError(t, err)

	require.NoError(t, w.Save(ctx, "v1"))
	_, err = w.ImportConfig("app", configdoc.Document{})
	require.NoError(t, err)

	require.NoError(t, w.Load(ctx, "v1"))
	after, _, err := w.ExportConfig("app")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	names, err := w.Snapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, names)

	require.NoError(t, w.DeleteSnapshot(ctx, "v1"))
	assert.ErrorIs(t, w.Load(ctx, "v1"), graph.ErrSnapshotNotFound)
}
