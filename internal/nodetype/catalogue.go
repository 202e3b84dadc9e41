package nodetype

import (
	"sort"
	"sync"

	"github.com/dusk-indust/schemagraph/internal/schema"
)

// Catalogue maps schemaName.modelName to node types, and schema names to the
// schemas they were generated from. Safe for concurrent use.
type Catalogue struct {
	mu      sync.RWMutex
	types   map[string]*NodeType
	order   map[string][]*NodeType // per schema, declaration order
	schemas map[string]*schema.Schema
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		types:   make(map[string]*NodeType),
		order:   make(map[string][]*NodeType),
		schemas: make(map[string]*schema.Schema),
	}
}

// Register generates node types for s under schemaName, replacing anything
// previously registered under that name.
func (c *Catalogue) Register(schemaName string, s *schema.Schema) []*NodeType {
	types := Generate(schemaName, s)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, old := range c.order[schemaName] {
		delete(c.types, old.Key())
	}
	for _, t := range types {
		c.types[t.Key()] = t
	}
	c.order[schemaName] = types
	c.schemas[schemaName] = s
	return types
}

// Lookup returns the node type for a schema model.
func (c *Catalogue) Lookup(schemaName, modelName string) (*NodeType, bool) {
	return c.LookupKey(Key(schemaName, modelName))
}

// LookupKey returns the node type registered under key.
func (c *Catalogue) LookupKey(key string) (*NodeType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[key]
	return t, ok
}

// Schema returns a registered schema.
func (c *Catalogue) Schema(name string) (*schema.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	return s, ok
}

// SchemaNames lists registered schemas, sorted.
func (c *Catalogue) SchemaNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types lists a schema's node types in declaration order.
func (c *Catalogue) Types(schemaName string) []*NodeType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*NodeType(nil), c.order[schemaName]...)
}

// Root returns the schema's root node type, if it declares one.
func (c *Catalogue) Root(schemaName string) (*NodeType, bool) {
	for _, t := range c.Types(schemaName) {
		if t.Root {
			return t, true
		}
	}
	return nil, false
}

// ByWorkflowType finds a schema's node type by its workflow tag.
func (c *Catalogue) ByWorkflowType(schemaName, workflowType string) (*NodeType, bool) {
	for _, t := range c.Types(schemaName) {
		if t.WorkflowType == workflowType {
			return t, true
		}
	}
	return nil, false
}
