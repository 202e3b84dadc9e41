package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

func TestExecute_NativeDefaultsAndCoercion(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "Agent")

	rec, err := g.Execute(a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":        "",
		"temperature": 0.7,
		"verbose":     false,
		"options":     map[string]any{},
		"stops":       []any{},
	}, rec.Fields, "empty optional and unconnected reference slots are omitted")

	require.NoError(t, g.SetValue(a.ID, "name", "planner"))
	require.NoError(t, g.SetValue(a.ID, "temperature", "0.25x"))
	require.NoError(t, g.SetValue(a.ID, "verbose", "true"))
	require.NoError(t, g.SetValue(a.ID, "options", `{"k": 1}`))
	require.NoError(t, g.SetValue(a.ID, "stops", "not json"))
	require.NoError(t, g.SetValue(a.ID, "model", "gpt"))

	rec, err = g.Execute(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "planner", rec.Fields["name"])
	assert.Equal(t, 0.25, rec.Fields["temperature"])
	assert.Equal(t, true, rec.Fields["verbose"])
	assert.Equal(t, map[string]any{"k": float64(1)}, rec.Fields["options"])
	assert.Equal(t, []any{}, rec.Fields["stops"])
	assert.Equal(t, "gpt", rec.Fields["model"])
}

func TestExecute_ConstantsAndIntCoercion(t *testing.T) {
	g := newTestGraph(t)
	tool := mustNode(t, g, "Tool")
	require.NoError(t, g.SetValue(tool.ID, "retries", "7"))

	rec, err := g.Execute(tool.ID)
	require.NoError(t, err)
	assert.Equal(t, "tool", rec.Fields["type"])
	assert.Equal(t, 7, rec.Fields["retries"])
}

func TestExecute_LinkedValuesAreRecords(t *testing.T) {
	g := newTestGraph(t)
	agent := mustNode(t, g, "Agent")
	t1 := mustNode(t, g, "Tool")
	t2 := mustNode(t, g, "Tool")
	require.NoError(t, g.SetValue(t1.ID, "name", "search"))
	require.NoError(t, g.SetValue(t2.ID, "name", "calc"))

	_, err := g.Connect(t2.ID, "", agent.ID, "tools")
	require.NoError(t, err)
	_, err = g.Connect(t1.ID, "", agent.ID, "tools")
	require.NoError(t, err)
	_, err = g.Connect(t1.ID, "", agent.ID, "primary")
	require.NoError(t, err)
	_, err = g.Connect(t2.ID, "", agent.ID, "by_name.c")
	require.NoError(t, err)

	rec, err := g.Execute(agent.ID)
	require.NoError(t, err)

	tools, ok := rec.Fields["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 2)
	assert.Same(t, t2.Record(), tools[0], "link insertion order")
	assert.Same(t, t1.Record(), tools[1])
	assert.Same(t, t1.Record(), rec.Fields["primary"])
	assert.Equal(t, "search", t1.Record().Fields["name"], "sources are executed lazily")

	byName, ok := rec.Fields["by_name"].(map[string]any)
	require.True(t, ok)
	assert.Same(t, t2.Record(), byName["c"])
}

func TestExecute_CycleTerminates(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "Agent")
	b := mustNode(t, g, "Agent")
	_, err := g.Connect(a.ID, "", b.ID, "peer")
	require.NoError(t, err)
	_, err = g.Connect(b.ID, "", a.ID, "peer")
	require.NoError(t, err)

	rec, err := g.Execute(a.ID)
	require.NoError(t, err)
	assert.Same(t, b.Record(), rec.Fields["peer"])
	assert.Same(t, a.Record(), b.Record().Fields["peer"])

	m := Materialize(rec)
	peer, ok := m["peer"].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, peer["peer"], "cycle back to the start is cut")
}

func TestExecute_AllAndIdempotent(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "Agent")
	require.NoError(t, g.SetValue(a.ID, "name", "x"))

	g.ExecuteAll()
	first := a.Record()
	firstName := first.Fields["name"]
	g.ExecuteAll()
	assert.Same(t, first, a.Record())
	assert.Equal(t, firstName, a.Record().Fields["name"])
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		kind     nodetype.Kind
		in       any
		optional bool
		want     any
		include  bool
	}{
		{"int text", nodetype.KindInt, "7", false, 7, true},
		{"int prefix", nodetype.KindInt, "12abc", false, 12, true},
		{"int garbage", nodetype.KindInt, "abc", false, 0, true},
		{"int from float", nodetype.KindInt, 3.9, false, 3, true},
		{"float text", nodetype.KindFloat, "2.5", false, 2.5, true},
		{"float garbage", nodetype.KindFloat, "x", false, 0.0, true},
		{"bool literal", nodetype.KindBool, true, false, true, true},
		{"bool text", nodetype.KindBool, "false", false, false, true},
		{"bool other", nodetype.KindBool, "yes", false, false, true},
		{"dict empty", nodetype.KindDict, "", false, map[string]any{}, true},
		{"dict wrong shape", nodetype.KindDict, "[1]", false, map[string]any{}, true},
		{"list text", nodetype.KindList, `["a"]`, false, []any{"a"}, true},
		{"list value", nodetype.KindList, []any{1}, false, []any{1}, true},
		{"str raw", nodetype.KindStr, "hi", false, "hi", true},
		{"nil uses default", nodetype.KindInt, nil, false, 0, true},
		{"optional empty", nodetype.KindStr, "", true, nil, false},
		{"optional nil", nodetype.KindInt, nil, true, nil, false},
		{"optional set", nodetype.KindInt, "4", true, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, include := Coerce(tt.kind, tt.in, tt.optional)
			assert.Equal(t, tt.include, include)
			assert.Equal(t, tt.want, got)
		})
	}
}
