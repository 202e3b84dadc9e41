// Package editor wraps a graph, its node type catalogue and a snapshot store
// behind one mutex, so that tool handlers and CLI commands can share them.
package editor

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/schemagraph/internal/config"
	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/export"
	"github.com/dusk-indust/schemagraph/internal/graph"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
	"github.com/dusk-indust/schemagraph/internal/schema"
	"github.com/dusk-indust/schemagraph/internal/typeexpr"
	"github.com/dusk-indust/schemagraph/internal/workflow"
)

// maxParallelParses bounds concurrent schema file parses.
const maxParallelParses = 8

// NodeInfo is a read-only view of a node.
type NodeInfo struct {
	ID       int            `json:"id"`
	Type     string         `json:"type"`
	Workflow string         `json:"workflowType"`
	Position graph.Position `json:"position"`
	Record   map[string]any `json:"record,omitempty"`
}

// Workspace is a graph editing session. All methods are safe for concurrent
// use.
type Workspace struct {
	mu sync.Mutex

	id        string
	log       hclog.Logger
	catalogue *nodetype.Catalogue
	graph     *graph.Graph
	store     graph.Store
	cache     *typeexpr.Cache
	parser    string
	roots     map[string]string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the workspace logger.
func WithLogger(log hclog.Logger) Option {
	return func(w *Workspace) {
		if log != nil {
			w.log = log
		}
	}
}

// WithStore sets the snapshot store. The workspace closes it on Close.
func WithStore(s graph.Store) Option {
	return func(w *Workspace) { w.store = s }
}

// WithParser selects the schema scanner kind ("line" or "treesitter").
func WithParser(kind string) Option {
	return func(w *Workspace) { w.parser = kind }
}

// WithRootModels names the root model per schema name.
func WithRootModels(roots map[string]string) Option {
	return func(w *Workspace) { w.roots = maps.Clone(roots) }
}

// WithTypeCache shares a parsed type cache across schemas.
func WithTypeCache(c *typeexpr.Cache) Option {
	return func(w *Workspace) { w.cache = c }
}

// New returns an empty workspace with an in-memory store unless one is given.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		id:        uuid.NewString(),
		log:       hclog.NewNullLogger(),
		catalogue: nodetype.NewCatalogue(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.store == nil {
		w.store = graph.NewMemStore()
	}
	w.log = w.log.With("session", w.id)
	w.graph = graph.New(w.catalogue, graph.WithLogger(w.log.Named("graph")))
	return w
}

// Open builds a workspace from project settings: it opens the configured
// store and loads every schema matched by cfg.Schemas under dir.
func Open(ctx context.Context, dir string, cfg *config.ProjectConfig, log hclog.Logger) (*Workspace, error) {
	store, err := graph.OpenStore(ctx, cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	cache, err := typeexpr.NewCache(cfg.CacheSize)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	w := New(
		WithLogger(log),
		WithStore(store),
		WithParser(cfg.Parser),
		WithRootModels(cfg.RootModel),
		WithTypeCache(cache),
	)
	if len(cfg.Schemas) > 0 {
		if _, err := w.LoadSchemaFiles(ctx, dir, cfg.Schemas); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}

// ID returns the session id.
func (w *Workspace) ID() string { return w.id }

// Catalogue returns the node type catalogue.
func (w *Workspace) Catalogue() *nodetype.Catalogue { return w.catalogue }

// Close releases the store.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Close()
}

// ---------- Schemas ----------

// rootModel returns the configured root model override for a schema.
func (w *Workspace) rootModel(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.roots[name]
}

// parse must not touch workspace state; LoadSchemaFiles calls it from
// several goroutines.
func (w *Workspace) parse(ctx context.Context, name, root, code string) (*schema.Schema, error) {
	scanner, err := schema.NewScanner(w.parser)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	opts := []schema.Option{
		schema.WithLogger(w.log.Named("schema")),
		schema.WithTypeCache(w.cache),
		schema.WithScanner(scanner),
	}
	if root != "" {
		opts = append(opts, schema.WithRoot(root))
	}
	return schema.Parse(ctx, name, code, opts...)
}

// LoadSchema parses code and registers its node types under name, replacing
// any schema of that name.
func (w *Workspace) LoadSchema(ctx context.Context, name, code string) ([]*nodetype.NodeType, error) {
	s, err := w.parse(ctx, name, w.rootModel(name), code)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	types := w.catalogue.Register(name, s)
	w.log.Info("schema loaded", "schema", name, "types", len(types), "root", s.Root)
	return types, nil
}

// LoadSchemaFiles parses every file under root matching patterns, in
// parallel. Each schema is named after its file's base name. Returns the
// loaded schema names, sorted.
func (w *Workspace) LoadSchemaFiles(ctx context.Context, root string, patterns []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	roots := make([]string, len(files))
	for i, file := range files {
		roots[i] = w.rootModel(SchemaName(file))
	}

	schemas := make([]*schema.Schema, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParses)
	for i, file := range files {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file)))
			if err != nil {
				return fmt.Errorf("read schema %s: %w", file, err)
			}
			s, err := w.parse(gctx, SchemaName(file), roots[i], string(data))
			if err != nil {
				return err
			}
			schemas[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		w.catalogue.Register(s.Name, s)
		names = append(names, s.Name)
	}
	sort.Strings(names)
	w.log.Info("schema files loaded", "files", len(files))
	return names, nil
}

// SchemaName derives a schema name from a file path: its base name without
// extension.
func SchemaName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NodeTypes lists a schema's node types.
func (w *Workspace) NodeTypes(schemaName string) []*nodetype.NodeType {
	return w.catalogue.Types(schemaName)
}

// ---------- Nodes & links ----------

func info(n *graph.Node) NodeInfo {
	return NodeInfo{
		ID:       n.ID,
		Type:     n.Type.Key(),
		Workflow: n.Type.WorkflowType,
		Position: n.Position,
		Record:   graph.Materialize(n.Record()),
	}
}

// CreateNode adds an instance of schemaName.model at pos and executes it.
func (w *Workspace) CreateNode(schemaName, model string, pos graph.Position) (NodeInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.graph.CreateNode(schemaName, model)
	if err != nil {
		return NodeInfo{}, err
	}
	n.Position = pos
	if _, err := w.graph.Execute(n.ID); err != nil {
		return NodeInfo{}, err
	}
	return info(n), nil
}

// RemoveNode deletes a node and its links.
func (w *Workspace) RemoveNode(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.graph.RemoveNode(id)
}

// Node returns a node's current view.
func (w *Workspace) Node(id int) (NodeInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.graph.Node(id)
	if !ok {
		return NodeInfo{}, fmt.Errorf("node %d: %w", id, graph.ErrNodeNotFound)
	}
	return info(n), nil
}

// Nodes lists nodes of one schema, or of every schema when schemaName is
// empty, with records as of the last execution.
func (w *Workspace) Nodes(schemaName string) []NodeInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []NodeInfo{}
	for _, n := range w.graph.Nodes() {
		if schemaName == "" || n.Type.SchemaName == schemaName {
			out = append(out, info(n))
		}
	}
	return out
}

// Connect links src's output slot to dst's input slot. A type mismatch
// leaves the graph unchanged and returns graph.ErrTypeMismatch.
func (w *Workspace) Connect(src int, srcSlot string, dst int, dstSlot string) (graph.Link, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, err := w.graph.Connect(src, srcSlot, dst, dstSlot)
	if err != nil {
		return graph.Link{}, err
	}
	return *l, nil
}

// Disconnect removes a link.
func (w *Workspace) Disconnect(linkID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.graph.RemoveLink(linkID)
}

// SetValue stores a native value on a node's input slot.
func (w *Workspace) SetValue(id int, slot string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.graph.SetValue(id, slot, v)
}

// Execute evaluates a node and returns its record with embedded records
// expanded.
func (w *Workspace) Execute(id int) (map[string]any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, err := w.graph.Execute(id)
	if err != nil {
		return nil, err
	}
	return graph.Materialize(r), nil
}

// ---------- Documents ----------

// ImportConfig replaces schemaName's nodes with those described by doc.
func (w *Workspace) ImportConfig(schemaName string, doc configdoc.Document) (*configdoc.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.catalogue.Types(schemaName)) == 0 {
		return nil, fmt.Errorf("import config: unknown schema %q", schemaName)
	}
	w.graph.Clear(schemaName)
	return configdoc.Import(w.graph, schemaName, doc, configdoc.WithLogger(w.log.Named("configdoc")))
}

// ExportConfig builds schemaName's config document.
func (w *Workspace) ExportConfig(schemaName string) (configdoc.Document, *configdoc.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return configdoc.Export(w.graph, schemaName, configdoc.WithLogger(w.log.Named("configdoc")))
}

// ImportWorkflow replaces schemaName's nodes with those of a workflow
// document.
func (w *Workspace) ImportWorkflow(schemaName string, doc *workflow.Document) (*workflow.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.catalogue.Types(schemaName)) == 0 {
		return nil, fmt.Errorf("import workflow: unknown schema %q", schemaName)
	}
	w.graph.Clear(schemaName)
	return workflow.Import(w.graph, schemaName, doc, workflow.WithLogger(w.log.Named("workflow")))
}

// ExportWorkflow builds schemaName's workflow document.
func (w *Workspace) ExportWorkflow(schemaName string) (*workflow.Document, *workflow.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return workflow.Export(w.graph, schemaName, workflow.WithLogger(w.log.Named("workflow")))
}

// Diagram renders schemaName's nodes as Mermaid; "" renders everything.
func (w *Workspace) Diagram(schemaName string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.graph.ExecuteAll()
	return export.GenerateMermaid(w.graph, schemaName)
}

// Summary returns a JSON-ready summary of schemaName's nodes.
func (w *Workspace) Summary(schemaName string) *export.GraphExport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return export.ExportGraph(w.graph, schemaName)
}

// ---------- Snapshots ----------

// Save stores the whole graph under name.
func (w *Workspace) Save(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap, err := w.graph.Snapshot(name)
	if err != nil {
		return err
	}
	if err := w.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	w.log.Info("snapshot saved", "name", name, "nodes", len(snap.Nodes), "links", len(snap.Links))
	return nil
}

// Load replaces the graph with the snapshot stored under name. Items that no
// longer fit the loaded schemas are skipped; the returned error then lists
// them while the graph is still replaced.
func (w *Workspace) Load(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap, err := w.store.LoadSnapshot(ctx, name)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", name, err)
	}
	g, err := graph.Restore(w.catalogue, snap, graph.WithLogger(w.log.Named("graph")))
	if g == nil {
		return err
	}
	w.graph = g
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return nil
}

// Snapshots lists stored snapshot names.
func (w *Workspace) Snapshots(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.ListSnapshots(ctx)
}

// DeleteSnapshot removes a stored snapshot.
func (w *Workspace) DeleteSnapshot(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.DeleteSnapshot(ctx, name)
}
