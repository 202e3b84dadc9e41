//go:build !cgo

package schema

import "context"

// TreeSitterScanner is unavailable without cgo.
type TreeSitterScanner struct{}

// NewTreeSitterScanner reports ErrTreeSitterUnavailable.
func NewTreeSitterScanner() (*TreeSitterScanner, error) {
	return nil, ErrTreeSitterUnavailable
}

// Scan reports ErrTreeSitterUnavailable.
func (s *TreeSitterScanner) Scan(_ context.Context, _ []byte) (*Declarations, error) {
	return nil, ErrTreeSitterUnavailable
}

// Close is a no-op.
func (s *TreeSitterScanner) Close() error { return nil }
