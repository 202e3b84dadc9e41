package mcptools

import (
	"github.com/dusk-indust/schemagraph/internal/editor"
	"github.com/dusk-indust/schemagraph/internal/graph"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
	"github.com/dusk-indust/schemagraph/internal/workflow"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// LoadSchemaInput is the input for the load_schema MCP tool.
type LoadSchemaInput struct {
	Name string `json:"name" jsonschema:"schema name used to address its node types"`
	Code string `json:"code,omitempty" jsonschema:"schema source text; takes precedence over path"`
	Path string `json:"path,omitempty" jsonschema:"path to a schema file to read when code is empty"`
}

// LoadSchemaOutput is the result of the load_schema MCP tool.
type LoadSchemaOutput struct {
	Schema string   `json:"schema"`
	Root   string   `json:"root,omitempty"`
	Models []string `json:"models"`
}

// ListNodeTypesInput is the input for the list_node_types MCP tool.
type ListNodeTypesInput struct {
	Schema string `json:"schema" jsonschema:"schema name"`
}

// ListNodeTypesOutput is the result of the list_node_types MCP tool.
type ListNodeTypesOutput struct {
	Types []*nodetype.NodeType `json:"types"`
}

// CreateNodeInput is the input for the create_node MCP tool.
type CreateNodeInput struct {
	Schema string  `json:"schema" jsonschema:"schema name"`
	Model  string  `json:"model" jsonschema:"model name, e.g. Backend"`
	X      float64 `json:"x,omitempty" jsonschema:"canvas x coordinate"`
	Y      float64 `json:"y,omitempty" jsonschema:"canvas y coordinate"`
}

// NodeOutput returns one node with its current record.
type NodeOutput struct {
	Node editor.NodeInfo `json:"node"`
}

// ConnectInput is the input for the connect MCP tool.
type ConnectInput struct {
	Source     int    `json:"source" jsonschema:"source node id"`
	SourceSlot string `json:"sourceSlot,omitempty" jsonschema:"source output slot (default: self)"`
	Target     int    `json:"target" jsonschema:"target node id"`
	TargetSlot string `json:"targetSlot" jsonschema:"target input slot; use slot.key for keyed multi slots"`
}

// ConnectOutput is the result of the connect MCP tool.
type ConnectOutput struct {
	Link graph.Link `json:"link"`
}

// SetValueInput is the input for the set_value MCP tool.
type SetValueInput struct {
	Node  int    `json:"node" jsonschema:"node id"`
	Slot  string `json:"slot" jsonschema:"native input slot name"`
	Value any    `json:"value" jsonschema:"value to store; coerced to the slot kind on execution"`
}

// ExecuteNodeInput is the input for the execute_node MCP tool.
type ExecuteNodeInput struct {
	Node int `json:"node" jsonschema:"node id"`
}

// ExecuteNodeOutput is the result of the execute_node MCP tool.
type ExecuteNodeOutput struct {
	Record map[string]any `json:"record"`
}

// ImportConfigInput is the input for the import_config MCP tool.
type ImportConfigInput struct {
	Schema   string         `json:"schema" jsonschema:"schema name"`
	Document map[string]any `json:"document" jsonschema:"config document: field name to records, a record, an index or a scalar"`
}

// ImportOutput is the result of the import_config and import_workflow tools.
type ImportOutput struct {
	Nodes   int      `json:"nodes"`
	Links   int      `json:"links"`
	Skipped []string `json:"skipped,omitempty"`
}

// SchemaInput names a schema.
type SchemaInput struct {
	Schema string `json:"schema" jsonschema:"schema name"`
}

// ExportConfigOutput is the result of the export_config MCP tool.
type ExportConfigOutput struct {
	Document map[string]any `json:"document"`
	Skipped  []string       `json:"skipped,omitempty"`
}

// ImportWorkflowInput is the input for the import_workflow MCP tool.
type ImportWorkflowInput struct {
	Schema   string            `json:"schema" jsonschema:"schema name"`
	Workflow workflow.Document `json:"workflow" jsonschema:"workflow document with nodes and edges"`
}

// ExportWorkflowOutput is the result of the export_workflow MCP tool.
type ExportWorkflowOutput struct {
	Workflow *workflow.Document `json:"workflow"`
}

// DiagramInput is the input for the diagram MCP tool.
type DiagramInput struct {
	Schema string `json:"schema,omitempty" jsonschema:"schema name (default: all schemas)"`
}

// DiagramOutput is the result of the diagram MCP tool.
type DiagramOutput struct {
	Mermaid string `json:"mermaid"`
}

// SnapshotInput is the input for the save_snapshot and load_snapshot tools.
type SnapshotInput struct {
	Name string `json:"name" jsonschema:"snapshot name"`
}

// SnapshotOutput is the result of the snapshot tools.
type SnapshotOutput struct {
	Name      string   `json:"name"`
	Snapshots []string `json:"snapshots"`
	Skipped   []string `json:"skipped,omitempty"`
}
