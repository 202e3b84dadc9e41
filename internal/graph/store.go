package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrSnapshotNotFound is returned when a named snapshot does not exist.
var ErrSnapshotNotFound = errors.New("graph: snapshot not found")

// Store persists graph snapshots by name.
// Implementations: KuzuStore (cgo, embedded property graph), MemStore (testing
// and cgo-free builds).
type Store interface {
	io.Closer

	// Schema setup, called once before any snapshot is saved.
	InitSchema(ctx context.Context) error

	// SaveSnapshot replaces any snapshot stored under snap.Name.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, name string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, name string) error
	ListSnapshots(ctx context.Context) ([]string, error)
}

// OpenStore returns the store registered under kind: "memory" (default) or
// "kuzu". An empty path gives an in-memory Kuzu database.
func OpenStore(ctx context.Context, kind, path string) (Store, error) {
	var s Store
	switch kind {
	case "", "memory":
		s = NewMemStore()
	case "kuzu":
		var (
			ks  *KuzuStore
			err error
		)
		if path == "" {
			ks, err = NewKuzuStore()
		} else {
			ks, err = NewKuzuFileStore(path)
		}
		if err != nil {
			return nil, err
		}
		s = ks
	default:
		return nil, fmt.Errorf("graph: unknown store %q", kind)
	}
	if err := s.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
