package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/editor"
	"github.com/dusk-indust/schemagraph/internal/graph"
)

// EditorService exposes a Workspace to MCP tool handlers.
type EditorService struct {
	ws *editor.Workspace
}

// NewEditorService creates an EditorService over ws.
func NewEditorService(ws *editor.Workspace) *EditorService {
	return &EditorService{ws: ws}
}

func skippedMessages(m *multierror.Error) []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		out[i] = err.Error()
	}
	return out
}

// LoadSchema parses schema source (inline or from a file) and registers its
// node types.
func (s *EditorService) LoadSchema(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadSchemaInput,
) (*mcp.CallToolResult, LoadSchemaOutput, error) {
	if input.Name == "" {
		return nil, LoadSchemaOutput{}, fmt.Errorf("name is required")
	}
	code := input.Code
	if code == "" {
		if input.Path == "" {
			return nil, LoadSchemaOutput{}, fmt.Errorf("code or path is required")
		}
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, LoadSchemaOutput{}, fmt.Errorf("cannot read path: %w", err)
		}
		code = string(data)
	}

	types, err := s.ws.LoadSchema(ctx, input.Name, code)
	if err != nil {
		return nil, LoadSchemaOutput{}, err
	}
	out := LoadSchemaOutput{Schema: input.Name, Models: make([]string, 0, len(types))}
	for _, t := range types {
		out.Models = append(out.Models, t.ModelName)
		if t.Root {
			out.Root = t.ModelName
		}
	}
	return nil, out, nil
}

// ListNodeTypes returns a schema's node types with their slots.
func (s *EditorService) ListNodeTypes(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListNodeTypesInput,
) (*mcp.CallToolResult, ListNodeTypesOutput, error) {
	types := s.ws.NodeTypes(input.Schema)
	if len(types) == 0 {
		return nil, ListNodeTypesOutput{}, fmt.Errorf("unknown schema %q", input.Schema)
	}
	return nil, ListNodeTypesOutput{Types: types}, nil
}

// CreateNode instantiates a node type.
func (s *EditorService) CreateNode(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CreateNodeInput,
) (*mcp.CallToolResult, NodeOutput, error) {
	n, err := s.ws.CreateNode(input.Schema, input.Model, graph.Position{X: input.X, Y: input.Y})
	if err != nil {
		return nil, NodeOutput{}, err
	}
	return nil, NodeOutput{Node: n}, nil
}

// Connect links two slots. Incompatible types are reported as a tool error
// and leave the graph unchanged.
func (s *EditorService) Connect(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ConnectInput,
) (*mcp.CallToolResult, ConnectOutput, error) {
	l, err := s.ws.Connect(input.Source, input.SourceSlot, input.Target, input.TargetSlot)
	if err != nil {
		return nil, ConnectOutput{}, err
	}
	return nil, ConnectOutput{Link: l}, nil
}

// SetValue stores a native value and returns the re-executed node.
func (s *EditorService) SetValue(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetValueInput,
) (*mcp.CallToolResult, NodeOutput, error) {
	if err := s.ws.SetValue(input.Node, input.Slot, input.Value); err != nil {
		return nil, NodeOutput{}, err
	}
	if _, err := s.ws.Execute(input.Node); err != nil {
		return nil, NodeOutput{}, err
	}
	n, err := s.ws.Node(input.Node)
	if err != nil {
		return nil, NodeOutput{}, err
	}
	return nil, NodeOutput{Node: n}, nil
}

// ExecuteNode evaluates a node and returns its materialized record.
func (s *EditorService) ExecuteNode(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExecuteNodeInput,
) (*mcp.CallToolResult, ExecuteNodeOutput, error) {
	rec, err := s.ws.Execute(input.Node)
	if err != nil {
		return nil, ExecuteNodeOutput{}, err
	}
	return nil, ExecuteNodeOutput{Record: rec}, nil
}

// ImportConfig replaces a schema's nodes with a config document.
func (s *EditorService) ImportConfig(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ImportConfigInput,
) (*mcp.CallToolResult, ImportOutput, error) {
	doc := configdoc.Document(input.Document)
	if doc == nil {
		doc = configdoc.Document{}
	}
	res, err := s.ws.ImportConfig(input.Schema, doc)
	if err != nil {
		return nil, ImportOutput{}, err
	}
	return nil, ImportOutput{Nodes: res.Nodes, Links: res.Links, Skipped: skippedMessages(res.Skipped)}, nil
}

// ExportConfig builds a schema's config document.
func (s *EditorService) ExportConfig(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SchemaInput,
) (*mcp.CallToolResult, ExportConfigOutput, error) {
	doc, res, err := s.ws.ExportConfig(input.Schema)
	if err != nil {
		return nil, ExportConfigOutput{}, err
	}
	return nil, ExportConfigOutput{Document: doc, Skipped: skippedMessages(res.Skipped)}, nil
}

// ImportWorkflow replaces a schema's nodes with a workflow document.
func (s *EditorService) ImportWorkflow(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ImportWorkflowInput,
) (*mcp.CallToolResult, ImportOutput, error) {
	res, err := s.ws.ImportWorkflow(input.Schema, &input.Workflow)
	if err != nil {
		return nil, ImportOutput{}, err
	}
	return nil, ImportOutput{Nodes: res.Nodes, Links: res.Edges, Skipped: skippedMessages(res.Skipped)}, nil
}

// ExportWorkflow builds a schema's workflow document.
func (s *EditorService) ExportWorkflow(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SchemaInput,
) (*mcp.CallToolResult, ExportWorkflowOutput, error) {
	doc, _, err := s.ws.ExportWorkflow(input.Schema)
	if err != nil {
		return nil, ExportWorkflowOutput{}, err
	}
	return nil, ExportWorkflowOutput{Workflow: doc}, nil
}

// Diagram renders the graph as a Mermaid flowchart.
func (s *EditorService) Diagram(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DiagramInput,
) (*mcp.CallToolResult, DiagramOutput, error) {
	return nil, DiagramOutput{Mermaid: s.ws.Diagram(input.Schema)}, nil
}

// SaveSnapshot stores the graph under a name.
func (s *EditorService) SaveSnapshot(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SnapshotInput,
) (*mcp.CallToolResult, SnapshotOutput, error) {
	if input.Name == "" {
		return nil, SnapshotOutput{}, fmt.Errorf("name is required")
	}
	if err := s.ws.Save(ctx, input.Name); err != nil {
		return nil, SnapshotOutput{}, err
	}
	names, err := s.ws.Snapshots(ctx)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	return nil, SnapshotOutput{Name: input.Name, Snapshots: names}, nil
}

// LoadSnapshot replaces the graph with a stored snapshot. Items that no
// longer fit the loaded schemas are reported, not fatal.
func (s *EditorService) LoadSnapshot(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SnapshotInput,
) (*mcp.CallToolResult, SnapshotOutput, error) {
	out := SnapshotOutput{Name: input.Name}
	if err := s.ws.Load(ctx, input.Name); err != nil {
		var merr *multierror.Error
		if !errors.As(err, &merr) {
			return nil, SnapshotOutput{}, err
		}
		out.Skipped = skippedMessages(merr)
	}
	names, err := s.ws.Snapshots(ctx)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	out.Snapshots = names
	return nil, out, nil
}
