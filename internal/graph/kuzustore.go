//go:build cgo

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB. Each snapshot is a
// GraphSnapshot node that CONTAINS its EditorNodes, with graph links stored
// as LINK relationships between them.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path, so saved snapshots survive across sessions. KuzuDB creates the
// leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS GraphSnapshot(
		name STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS EditorNode(
		uid STRING,
		snapshot STRING,
		id INT64,
		schema_name STRING,
		model STRING,
		x DOUBLE,
		y DOUBLE,
		vals STRING,
		PRIMARY KEY(uid)
	)`,
	`CREATE REL TABLE IF NOT EXISTS CONTAINS(FROM GraphSnapshot TO EditorNode)`,
	`CREATE REL TABLE IF NOT EXISTS LINK(
		FROM EditorNode TO EditorNode,
		id INT64,
		source_slot STRING,
		target_slot STRING,
		link_key STRING
	)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// SaveSnapshot replaces the named snapshot: its old nodes and links are
// detached and deleted, then the new state is inserted.
func (s *KuzuStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := s.DeleteSnapshot(ctx, snap.Name); err != nil {
		return err
	}
	if err := s.exec("CREATE (:GraphSnapshot {name: $name})", map[string]any{"name": snap.Name}); err != nil {
		return fmt.Errorf("kuzu: save %s: %w", snap.Name, err)
	}

	for _, n := range snap.Nodes {
		vals, err := json.Marshal(n.Values)
		if err != nil {
			return fmt.Errorf("kuzu: encode values of node %d: %w", n.ID, err)
		}
		err = s.exec(
			`CREATE (:EditorNode {
				uid: $uid,
				snapshot: $snap,
				id: $id,
				schema_name: $schema,
				model: $model,
				x: $x,
				y: $y,
				vals: $vals
			})`,
			map[string]any{
				"uid":    nodeUID(snap.Name, n.ID),
				"snap":   snap.Name,
				"id":     int64(n.ID),
				"schema": n.Schema,
				"model":  n.Model,
				"x":      n.X,
				"y":      n.Y,
				"vals":   string(vals),
			},
		)
		if err != nil {
			return fmt.Errorf("kuzu: save node %d: %w", n.ID, err)
		}
		err = s.exec(
			`MATCH (g:GraphSnapshot {name: $snap}), (n:EditorNode {uid: $uid})
			 CREATE (g)-[:CONTAINS]->(n)`,
			map[string]any{"snap": snap.Name, "uid": nodeUID(snap.Name, n.ID)},
		)
		if err != nil {
			return fmt.Errorf("kuzu: attach node %d: %w", n.ID, err)
		}
	}

	for _, l := range snap.Links {
		err := s.exec(
			`MATCH (a:EditorNode {uid: $src}), (b:EditorNode {uid: $dst})
			 CREATE (a)-[:LINK {id: $id, source_slot: $ss, target_slot: $ts, link_key: $key}]->(b)`,
			map[string]any{
				"src": nodeUID(snap.Name, l.Source),
				"dst": nodeUID(snap.Name, l.Target),
				"id":  int64(l.ID),
				"ss":  l.SourceSlot,
				"ts":  l.TargetSlot,
				"key": l.Key,
			},
		)
		if err != nil {
			return fmt.Errorf("kuzu: save link %d: %w", l.ID, err)
		}
	}
	return nil
}

// DeleteSnapshot removes a snapshot with its nodes and links.
func (s *KuzuStore) DeleteSnapshot(_ context.Context, name string) error {
	params := map[string]any{"name": name}
	if err := s.exec("MATCH (n:EditorNode) WHERE n.snapshot = $name DETACH DELETE n", params); err != nil {
		return fmt.Errorf("kuzu: delete nodes of %s: %w", name, err)
	}
	if err := s.exec("MATCH (g:GraphSnapshot {name: $name}) DETACH DELETE g", params); err != nil {
		return fmt.Errorf("kuzu: delete snapshot %s: %w", name, err)
	}
	return nil
}

// ---------- Read operations ----------

// LoadSnapshot reads a snapshot back, nodes and links ordered by id.
func (s *KuzuStore) LoadSnapshot(_ context.Context, name string) (*Snapshot, error) {
	params := map[string]any{"name": name}
	rows, err := s.query("MATCH (g:GraphSnapshot {name: $name}) RETURN g.name", params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kuzu: %s: %w", name, ErrSnapshotNotFound)
	}

	snap := &Snapshot{Name: name}
	rows, err = s.query(
		`MATCH (g:GraphSnapshot {name: $name})-[:CONTAINS]->(n:EditorNode)
		 RETURN n.id, n.schema_name, n.model, n.x, n.y, n.vals
		 ORDER BY n.id`,
		params,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		vals, err := decodeValues(toString(r[5]))
		if err != nil {
			return nil, fmt.Errorf("kuzu: decode values of node %d: %w", toInt(r[0]), err)
		}
		snap.Nodes = append(snap.Nodes, NodeState{
			ID:     toInt(r[0]),
			Schema: toString(r[1]),
			Model:  toString(r[2]),
			X:      toFloat(r[3]),
			Y:      toFloat(r[4]),
			Values: vals,
		})
	}

	rows, err = s.query(
		`MATCH (a:EditorNode)-[l:LINK]->(b:EditorNode)
		 WHERE a.snapshot = $name
		 RETURN l.id, a.id, l.source_slot, b.id, l.target_slot, l.link_key
		 ORDER BY l.id`,
		params,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		snap.Links = append(snap.Links, LinkState{
			ID:         toInt(r[0]),
			Source:     toInt(r[1]),
			SourceSlot: toString(r[2]),
			Target:     toInt(r[3]),
			TargetSlot: toString(r[4]),
			Key:        toString(r[5]),
		})
	}
	return snap, nil
}

// ListSnapshots returns stored snapshot names, sorted.
func (s *KuzuStore) ListSnapshots(_ context.Context) ([]string, error) {
	rows, err := s.query("MATCH (g:GraphSnapshot) RETURN g.name ORDER BY g.name", nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, toString(r[0]))
	}
	return names, nil
}

// ---------- Helpers ----------

// exec runs a parameterized Cypher statement that returns no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// nodeUID is the EditorNode primary key: node ids repeat across snapshots.
func nodeUID(snapshot string, id int) string {
	return snapshot + "#" + strconv.Itoa(id)
}

// decodeValues reads a JSON values map, keeping integral numbers as int.
func decodeValues(text string) (map[string]any, error) {
	if text == "" || text == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var vals map[string]any
	if err := dec.Decode(&vals); err != nil {
		return nil, err
	}
	for k, v := range vals {
		vals[k] = normalizeNumbers(v)
	}
	return vals, nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	default:
		return v
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
