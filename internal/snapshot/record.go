// Package snapshot implements SnapshotRecord and its compressed wire form,
// per the data model (spec §3) and the snapshot pipeline's fixed composition
// order (spec §4.4).
package snapshot

import (
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// MaxNodes and MaxImmediates bound a Record's two parallel arrays. These are
// compile-time capacities, not configuration: a Record is stack-friendly and
// allocation-free, a requirement for snapshots taken from a signal-handler
// path (spec §5).
const (
	MaxNodes      = 16
	MaxImmediates = 16
)

// Record is a fixed-capacity snapshot buffer: a parallel array of tree-node
// references (each node's ancestry encodes its full nested-attribute chain)
// and a parallel array of (attribute-ID, Variant) immediate entries. Append
// operations silently drop once a capacity is reached; this is documented
// behavior, not an error (spec §3).
type Record struct {
	nodes     [MaxNodes]calitree.NodeRef
	immAttrs  [MaxImmediates]uint32
	immValues [MaxImmediates]variant.Variant
	nodeCount int
	immCount  int
}

// NewRecord returns an empty Record.
func NewRecord() *Record { return &Record{} }

// AppendNode appends node to the reference array. The attr parameter is
// accepted to satisfy blackboard.Appender but is not stored: a node's
// position in the MetadataTree already encodes its attribute via the tree
// walk, so the compressed form keys on node ID alone (spec's binary
// format, §6).
func (r *Record) AppendNode(_ uint32, node calitree.NodeRef) bool {
	if r.nodeCount >= MaxNodes {
		return false
	}

	r.nodes[r.nodeCount] = node
	r.nodeCount++

	return true
}

// AppendImmediate appends an (attr, value) immediate entry.
func (r *Record) AppendImmediate(attr uint32, v variant.Variant) bool {
	if r.immCount >= MaxImmediates {
		return false
	}

	r.immAttrs[r.immCount] = attr
	r.immValues[r.immCount] = v
	r.immCount++

	return true
}

// Nodes returns the recorded node references, in append order.
func (r *Record) Nodes() []calitree.NodeRef { return r.nodes[:r.nodeCount] }

// NumImmediates returns the count of recorded immediate entries.
func (r *Record) NumImmediates() int { return r.immCount }

// Immediate returns the i'th recorded immediate entry.
func (r *Record) Immediate(i int) (attr uint32, v variant.Variant) {
	return r.immAttrs[i], r.immValues[i]
}

// Reset clears the record for reuse without reallocating its backing
// arrays.
func (r *Record) Reset() {
	r.nodeCount = 0
	r.immCount = 0
}

// Full reports whether both arrays have reached capacity.
func (r *Record) Full() bool {
	return r.nodeCount >= MaxNodes && r.immCount >= MaxImmediates
}
