package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/schemagraph/internal/config"
	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/workflow"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const sampleConfigJSON = `{
  "name": "demo",
  "backends": [
    {"name": "api", "url": "http://api"},
    {"name": "web", "url": "http://web"}
  ],
  "routes": [
    {"name": "r1", "backend": 1}
  ]
}`

const sampleConfigYAML = `name: demo
backends:
  - name: api
    url: http://api
routes:
  - name: r1
    backend: 0
`

// project creates an empty project directory holding the app schema and
// clears environment overrides.
func project(t *testing.T) (dir, schemaPath string) {
	t.Helper()
	for _, key := range []string{config.EnvLogLevel, config.EnvStore, config.EnvStorePath, config.EnvParser} {
		t.Setenv(key, "")
	}
	dir = t.TempDir()
	data, err := os.ReadFile("../../testdata/fixtures/schemas/app.py")
	require.NoError(t, err)
	schemaPath = filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(schemaPath, data, 0o644))
	return dir, schemaPath
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// ---------------------------------------------------------------------------
// Command tree
// ---------------------------------------------------------------------------

func TestRootCommand(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, "schemagraph", root.Use)
	assert.NotEmpty(t, root.Short)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	for _, want := range []string{"convert", "diagram", "roundtrip", "serve-mcp", "types"} {
		assert.Contains(t, names, want)
	}

	for _, name := range []string{"project-root", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

// ---------------------------------------------------------------------------
// types
// ---------------------------------------------------------------------------

func TestTypesCommand(t *testing.T) {
	dir, schemaPath := project(t)

	out, _, err := execute(t, "--project-root", dir, "types", schemaPath)
	require.NoError(t, err)

	var types []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	require.Len(t, types, 5)
	assert.Equal(t, "Component", types[0]["model"])
	assert.Equal(t, "App", types[4]["model"])
	assert.Equal(t, true, types[4]["root"])
}

func TestTypesCommandRequiresFile(t *testing.T) {
	_, _, err := execute(t, "types")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// convert / roundtrip
// ---------------------------------------------------------------------------

func TestConvertConfigToWorkflowAndBack(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "app.json", sampleConfigJSON)

	out, _, err := execute(t, "--project-root", dir, "convert", "--schema", schemaPath, "--to", "workflow", cfgPath)
	require.NoError(t, err)
	wf, err := workflow.Decode(strings.NewReader(out), configdoc.FormatJSON)
	require.NoError(t, err)
	assert.Len(t, wf.Nodes, 4)
	assert.NotEmpty(t, wf.Edges)

	wfPath := writeFile(t, dir, "app.workflow.json", out)
	out, _, err = execute(t, "--project-root", dir, "convert", "--schema", schemaPath, "--to", "config", wfPath)
	require.NoError(t, err)
	doc, err := configdoc.Decode(strings.NewReader(out), configdoc.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "demo", doc["name"])
	routes := doc["routes"].([]any)
	assert.Equal(t, 1, routes[0].(map[string]any)["backend"])
}

func TestConvertRejectsBadTarget(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "app.json", sampleConfigJSON)

	_, _, err := execute(t, "--project-root", dir, "convert", "--schema", schemaPath, "--to", "xml", cfgPath)
	assert.ErrorContains(t, err, "--to")

	_, _, err = execute(t, "--project-root", dir, "convert", "--to", "workflow", cfgPath)
	assert.Error(t, err, "--schema is required")

	_, _, err = execute(t, "--project-root", dir, "convert", "--schema", schemaPath, "--to", "workflow", "--format", "toml", cfgPath)
	assert.ErrorContains(t, err, "unknown format")
}

func TestRoundtripYAML(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "app.yaml", sampleConfigYAML)

	out, _, err := execute(t, "--project-root", dir, "roundtrip", "--schema", schemaPath, cfgPath)
	require.NoError(t, err)

	doc, err := configdoc.Decode(strings.NewReader(out), configdoc.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "demo", doc["name"])
	assert.Len(t, doc["backends"], 1)
	routes := doc["routes"].([]any)
	assert.Equal(t, 0, routes[0].(map[string]any)["backend"])

	out, _, err = execute(t, "--project-root", dir, "roundtrip", "--schema", schemaPath, "--format", "json", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestRoundtripReportsSkipped(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "bad.json", `{"backends": [{"name": "api"}], "routes": [{"name": "r1", "backend": 9}]}`)

	_, stderr, err := execute(t, "--project-root", dir, "roundtrip", "--schema", schemaPath, cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "some items were skipped")
}

// ---------------------------------------------------------------------------
// diagram
// ---------------------------------------------------------------------------

func TestDiagramCommand(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "app.json", sampleConfigJSON)

	out, _, err := execute(t, "--project-root", dir, "diagram", "--schema", schemaPath, cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR"))
	assert.Contains(t, out, "-->|backend|")

	out, _, err = execute(t, "--project-root", dir, "diagram", "--schema", schemaPath, "--json", cfgPath)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "app", summary["schema"])
	assert.Len(t, summary["nodes"], 4)
}

func TestDiagramFromWorkflow(t *testing.T) {
	dir, schemaPath := project(t)
	cfgPath := writeFile(t, dir, "app.json", sampleConfigJSON)
	wfOut, _, err := execute(t, "--project-root", dir, "convert", "--schema", schemaPath, "--to", "workflow", cfgPath)
	require.NoError(t, err)
	wfPath := writeFile(t, dir, "app.workflow.json", wfOut)

	out, _, err := execute(t, "--project-root", dir, "diagram", "--schema", schemaPath, "--workflow", wfPath)
	require.NoError(t, err)
	assert.Contains(t, out, "-->|backends|")
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func TestInvalidLogLevel(t *testing.T) {
	dir, schemaPath := project(t)
	_, _, err := execute(t, "--project-root", dir, "--log-level", "loud", "types", schemaPath)
	assert.ErrorContains(t, err, "log-level")
}

func TestProjectConfigLoadsSchemas(t *testing.T) {
	dir, _ := project(t)
	writeFile(t, dir, "schemagraph.yml", "schemas:\n  - \"*.py\"\nlogLevel: debug\n")
	cfgPath := writeFile(t, dir, "app.json", sampleConfigJSON)

	_, stderr, err := execute(t, "--project-root", dir, "diagram", "--schema", filepath.Join(dir, "app.py"), cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "[INFO]")

	_, _, err = execute(t, "--project-root", dir, "--log-level", "off", "types", filepath.Join(dir, "app.py"))
	require.NoError(t, err)
}
