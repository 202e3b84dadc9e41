//go:build !cgo

package graph

import (
	"context"
	"errors"
)

// ErrKuzuUnavailable is returned by the Kuzu constructors in builds without
// cgo.
var ErrKuzuUnavailable = errors.New("graph: kuzu store requires cgo")

// KuzuStore is unavailable without cgo.
type KuzuStore struct{}

// NewKuzuStore returns ErrKuzuUnavailable.
func NewKuzuStore() (*KuzuStore, error) { return nil, ErrKuzuUnavailable }

// NewKuzuFileStore returns ErrKuzuUnavailable.
func NewKuzuFileStore(string) (*KuzuStore, error) { return nil, ErrKuzuUnavailable }

// Close is a no-op.
func (s *KuzuStore) Close() error { return nil }

// InitSchema returns ErrKuzuUnavailable.
func (s *KuzuStore) InitSchema(context.Context) error { return ErrKuzuUnavailable }

// SaveSnapshot returns ErrKuzuUnavailable.
func (s *KuzuStore) SaveSnapshot(context.Context, *Snapshot) error { return ErrKuzuUnavailable }

// DeleteSnapshot returns ErrKuzuUnavailable.
func (s *KuzuStore) DeleteSnapshot(context.Context, string) error { return ErrKuzuUnavailable }

// LoadSnapshot returns ErrKuzuUnavailable.
func (s *KuzuStore) LoadSnapshot(context.Context, string) (*Snapshot, error) {
	return nil, ErrKuzuUnavailable
}

// ListSnapshots returns ErrKuzuUnavailable.
func (s *KuzuStore) ListSnapshots(context.Context) ([]string, error) {
	return nil, ErrKuzuUnavailable
}
