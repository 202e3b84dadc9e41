package graph

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/schemagraph/internal/nodetype"
)

// --- Errors ---

var (
	// ErrTypeMismatch rejects a link whose producer type cannot feed the
	// consumer slot. The graph is left unchanged.
	ErrTypeMismatch = errors.New("graph: type mismatch")
	ErrNodeNotFound = errors.New("graph: node not found")
	ErrSlotNotFound = errors.New("graph: slot not found")
	ErrLinkNotFound = errors.New("graph: link not found")
)

// TypeMismatchError carries the two slot types of a rejected link.
type TypeMismatchError struct {
	Producer string
	Consumer string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("graph: type mismatch: %s cannot feed %s", e.Producer, e.Consumer)
}

// Is lets errors.Is match ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// --- Models ---

// Position is a node's canvas coordinate. It has no semantic meaning.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one instance of a node type.
type Node struct {
	ID       int
	Type     *nodetype.NodeType
	Position Position

	// values holds native input values by input slot index.
	values map[int]any
	// in holds incoming link ids per input slot, in insertion order.
	in [][]int
	// out holds outgoing link ids per output slot.
	out [][]int
	// record is created with the node and updated in place by Execute, so
	// downstream records can hold it by reference.
	record *Record
}

// Record returns the node's output record as of the last execution.
func (n *Node) Record() *Record { return n.record }

// Value returns the stored native value of an input slot.
func (n *Node) Value(slot int) (any, bool) {
	v, ok := n.values[slot]
	return v, ok
}

// InputLinks returns the incoming link ids of an input slot.
func (n *Node) InputLinks(slot int) []int {
	if slot < 0 || slot >= len(n.in) {
		return nil
	}
	return append([]int(nil), n.in[slot]...)
}

// OutputLinks returns the outgoing link ids of an output slot.
func (n *Node) OutputLinks(slot int) []int {
	if slot < 0 || slot >= len(n.out) {
		return nil
	}
	return append([]int(nil), n.out[slot]...)
}

// Link connects one node's output slot to another node's input slot.
type Link struct {
	ID         int    `json:"id"`
	Source     int    `json:"source"`
	SourceSlot int    `json:"sourceSlot"`
	Target     int    `json:"target"`
	TargetSlot int    `json:"targetSlot"`
	Type       string `json:"type"`
	// Key is set on links into keyed multi slots ("slot.key" on the wire).
	Key string `json:"key,omitempty"`
}

// Record is the data a node produces. NodeID tags the record so that a
// value embedded in another record can be traced back to its node.
type Record struct {
	NodeID int
	Schema string
	Model  string
	Fields map[string]any
}

// GraphStats summarizes a graph.
type GraphStats struct {
	NodeCount int            `json:"nodeCount"`
	LinkCount int            `json:"linkCount"`
	ByModel   map[string]int `json:"byModel"`
}
