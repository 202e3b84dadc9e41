// Package configdoc converts between a graph and a nested configuration
// document. Objects shared between records are stored once, in the
// collection of their model, and referenced elsewhere by integer index.
package configdoc

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// ErrUnresolvedReference marks a dangling index, an unknown model or a value
// that cannot be linked. The affected field is left unset.
var ErrUnresolvedReference = errors.New("configdoc: unresolved reference")

// Document is a config document: field name to an array of records, a single
// record, an index, or a root scalar.
type Document = map[string]any

// Result summarizes a bulk conversion. Skipped collects every field- or
// node-scoped failure; the conversion itself still completed.
type Result struct {
	Nodes   int
	Links   int
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

// WithLogger sets the logger for skipped items and summaries.
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

func unresolved(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnresolvedReference)
}
