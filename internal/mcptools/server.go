package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/schemagraph/internal/editor"
)

// version is set by the linker at build time.
var version = "dev"

// NewEditorMCPServer creates an MCP server with every graph editing tool
// registered over ws.
func NewEditorMCPServer(ws *editor.Workspace) *mcp.Server {
	svc := NewEditorService(ws)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "schemagraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_schema",
		Description: "Parse a Python-like schema (class declarations with typed, annotated fields) and register one node type per model.",
	}, svc.LoadSchema)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_node_types",
		Description: "List a schema's node types with their input and output slots, link types and defaults.",
	}, svc.ListNodeTypes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_node",
		Description: "Create a node instance of a schema model. Returns the node id and its initial record.",
	}, svc.CreateNode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "connect",
		Description: "Link a node's output slot to another node's input slot. Fails without changing the graph when the slot types are incompatible.",
	}, svc.Connect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_value",
		Description: "Store a native value (int, float, bool, str, dict or list text) on a node's input slot and re-execute the node.",
	}, svc.SetValue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute_node",
		Description: "Evaluate a node, pulling linked upstream records, and return its record.",
	}, svc.ExecuteNode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_config",
		Description: "Replace a schema's nodes with those described by a nested config document. Integer field values are indexes into the model's collection.",
	}, svc.ImportConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_config",
		Description: "Build the nested config document for a schema's nodes; shared records are referenced by collection index.",
	}, svc.ExportConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_workflow",
		Description: "Replace a schema's nodes with a workflow document of typed nodes and index-based edges.",
	}, svc.ImportWorkflow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_workflow",
		Description: "Export a schema's nodes and links as a workflow document of typed nodes and index-based edges.",
	}, svc.ExportWorkflow)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "diagram",
		Description: "Render the graph as a Mermaid flowchart, nodes grouped by model.",
	}, svc.Diagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_snapshot",
		Description: "Persist the whole graph under a name in the configured store.",
	}, svc.SaveSnapshot)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_snapshot",
		Description: "Replace the graph with a stored snapshot. Nodes or links that no longer fit the loaded schemas are reported as skipped.",
	}, svc.LoadSnapshot)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP at addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
