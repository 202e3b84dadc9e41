package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/copystructure"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using a Go map. Thread-safe via sync.RWMutex.
// Snapshots are deep-copied in and out so callers never share state with it.
type MemStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{snapshots: make(map[string]*Snapshot)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// SaveSnapshot stores a deep copy of snap.
func (m *MemStore) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	c, err := copystructure.Copy(snap)
	if err != nil {
		return fmt.Errorf("memstore: copy snapshot %s: %w", snap.Name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Name] = c.(*Snapshot)
	return nil
}

// LoadSnapshot returns a deep copy of the named snapshot.
func (m *MemStore) LoadSnapshot(_ context.Context, name string) (*Snapshot, error) {
	m.mu.RLock()
	snap, ok := m.snapshots[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", name, ErrSnapshotNotFound)
	}
	c, err := copystructure.Copy(snap)
	if err != nil {
		return nil, fmt.Errorf("memstore: copy snapshot %s: %w", name, err)
	}
	return c.(*Snapshot), nil
}

// DeleteSnapshot removes the named snapshot. Deleting a missing name is not
// an error.
func (m *MemStore) DeleteSnapshot(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, name)
	return nil
}

// ListSnapshots returns stored snapshot names, sorted.
func (m *MemStore) ListSnapshots(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
