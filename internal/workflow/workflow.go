// Package workflow converts between a graph and the flat node/edge document
// exchanged with workflow runners: nodes are tagged objects, edges refer to
// them by position in the nodes array.
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/schemagraph/internal/configdoc"
)

// ErrUnknownNodeType marks a node whose type tag resolves to no node type.
// Its index stays reserved so that edges between other nodes still resolve.
var ErrUnknownNodeType = errors.New("workflow: unknown node type")

// Node is one wire node: "type", the node's field values, and an optional
// "extra" object carrying layout.
type Node = map[string]any

// Edge connects two wire nodes by index. Slot names may carry a ".key"
// suffix for keyed multi slots; an empty SourceSlot means the self slot.
type Edge struct {
	Source     int            `json:"source" yaml:"source"`
	Target     int            `json:"target" yaml:"target"`
	SourceSlot string         `json:"source_slot,omitempty" yaml:"source_slot,omitempty"`
	TargetSlot string         `json:"target_slot" yaml:"target_slot"`
	Extra      map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Document is the workflow wire format.
type Document struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

const (
	typeKey  = "type"
	extraKey = "extra"
)

// Result summarizes a conversion; Skipped holds every node- or edge-scoped
// failure.
type Result struct {
	Nodes   int
	Edges   int
	Skipped *multierror.Error
}

// SkippedCount returns how many items were skipped.
func (r *Result) SkippedCount() int {
	if r == nil || r.Skipped == nil {
		return 0
	}
	return len(r.Skipped.Errors)
}

func (r *Result) skip(log hclog.Logger, err error, args ...any) {
	log.Warn("skipped", append(args, "error", err)...)
	r.Skipped = multierror.Append(r.Skipped, err)
}

// Option configures Export and Import.
type Option func(*options)

type options struct {
	log hclog.Logger
}

// WithLogger sets the logger.
func WithLogger(log hclog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{log: hclog.NewNullLogger()}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Decode reads a document in the given format.
func Decode(r io.Reader, format configdoc.Format) (*Document, error) {
	doc := &Document{}
	switch format {
	case configdoc.FormatYAML:
		if err := yaml.NewDecoder(r).Decode(doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml workflow: %w", err)
		}
	default:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("decode json workflow: %w", err)
		}
		for i, n := range doc.Nodes {
			doc.Nodes[i] = configdoc.Normalize(n).(map[string]any)
		}
	}
	return doc, nil
}

// Encode writes a document, indented.
func Encode(w io.Writer, doc *Document, format configdoc.Format) error {
	if format == configdoc.FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml workflow: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json workflow: %w", err)
	}
	return nil
}

// ReadFile decodes the workflow at path, by extension.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return Decode(bytes.NewReader(data), configdoc.FormatFor(path))
}

// WriteFile encodes doc to path, by extension.
func WriteFile(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, configdoc.FormatFor(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	return nil
}
