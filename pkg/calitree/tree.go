// Package calitree implements the MetadataTree: a persistent, append-only,
// shared trie storing every nested annotation value ever observed,
// identified by stable integer node references.
//
// Node storage is a growable arena of 32-bit indices rather than raw
// pointers (the re-architecture called for in the design notes): a NodeRef
// is an index into the tree's backing slice, so the tree is trivially safe
// to share across reader goroutines, and a node's lifetime never needs to
// be threaded through the API. The arena is grounded on the bump-allocator
// shape used elsewhere in this codebase for red-black tree node storage
// (growable slice, 3/2 growth factor, reserved sentinel index 0) adapted
// here for an append-only trie: there is no free list, because metadata
// nodes are never individually reclaimed.
package calitree

import (
	"sync"

	"github.com/hpctrace/caliper/pkg/safeconv"
	"github.com/hpctrace/caliper/pkg/variant"
)

// NodeRef is a stable reference to a tree node: an index into the arena.
// The zero value, Root, is the sentinel root and never a real entry.
type NodeRef uint32

// Root is the sentinel root node reference. It is not a real annotation
// entry; it is the common ancestor every top-level attribute hangs off of.
const Root NodeRef = 0

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth
// factor applied when the arena's backing slice must be resized.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
	minGrowCapacity         = 16
)

type node struct {
	value       variant.Variant
	attr        uint32
	parent      NodeRef
	firstChild  NodeRef
	nextSibling NodeRef
}

// Tree is the MetadataTree: an append-only arena of nodes, each identified
// by a monotonically increasing NodeRef. Reads (Attr, Value, Parent,
// Children, Path) take a read lock and may proceed concurrently with each
// other; GetOrCreateChild takes the write lock for the duration of its
// (bounded) child-list scan and, if needed, a single node allocation. This
// guarantees the invariant that a concurrent walk never observes a
// partially linked child, without requiring raw lock-free CAS publication.
type Tree struct {
	mu      sync.RWMutex
	storage []node
	onAlloc func()
}

// New creates an empty MetadataTree, pre-seeded with the root sentinel at
// index 0.
func New() *Tree {
	t := &Tree{storage: make([]node, 1, minGrowCapacity)}

	return t
}

// OnAlloc registers a callback fired once per genuinely new node allocated
// by GetOrCreateChild (not on a cache hit against an existing child).
// Caliper core wires this to its NodesAllocated self-metric.
func (t *Tree) OnAlloc(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onAlloc = fn
}

// Len returns the number of real (non-root) nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.storage) - 1
}

// GetOrCreateChild returns the existing child of parent whose (attr, value)
// matches, creating it if necessary. Two calls with the same (parent, attr,
// value) triple always return the identical NodeRef: this is the tree's
// central uniqueness guarantee (spec invariant 1).
func (t *Tree) GetOrCreateChild(parent NodeRef, attr uint32, value variant.Variant) NodeRef {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.findChildLocked(parent, attr, value); ok {
		return existing
	}

	newRef := t.allocLocked(node{attr: attr, value: value, parent: parent})

	t.storage[newRef].nextSibling = t.storage[parent].firstChild
	t.storage[parent].firstChild = newRef

	if t.onAlloc != nil {
		t.onAlloc()
	}

	return newRef
}

func (t *Tree) findChildLocked(parent NodeRef, attr uint32, value variant.Variant) (NodeRef, bool) {
	child := t.storage[parent].firstChild

	for child != Root {
		nd := t.storage[child]
		if nd.attr == attr && nd.value.Equal(value) {
			return child, true
		}

		child = nd.nextSibling
	}

	return Root, false
}

func (t *Tree) allocLocked(n node) NodeRef {
	if len(t.storage) == cap(t.storage) {
		t.growLocked()
	}

	t.storage = append(t.storage, n)

	return NodeRef(safeconv.MustIntToUint32(len(t.storage) - 1))
}

func (t *Tree) growLocked() {
	newCap := cap(t.storage) * growCapacityNumerator / growCapacityDenominator
	if newCap <= cap(t.storage) {
		newCap = cap(t.storage) + minGrowCapacity
	}

	grown := make([]node, len(t.storage), newCap)
	copy(grown, t.storage)
	t.storage = grown
}

// Attr returns the attribute ID stored at ref.
func (t *Tree) Attr(ref NodeRef) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.storage[ref].attr
}

// Value returns the Variant stored at ref.
func (t *Tree) Value(ref NodeRef) variant.Variant {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.storage[ref].value
}

// Parent returns the parent of ref. The root's parent is Root itself.
func (t *Tree) Parent(ref NodeRef) NodeRef {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.storage[ref].parent
}

// Children returns, in most-recently-created-first order, the child refs of
// parent. Order is unspecified by the spec beyond uniqueness; most-recent-
// first falls out naturally from head-insertion and is cheap to produce.
func (t *Tree) Children(parent NodeRef) []NodeRef {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []NodeRef

	for child := t.storage[parent].firstChild; child != Root; child = t.storage[child].nextSibling {
		out = append(out, child)
	}

	return out
}

// Path returns the chain of node refs from ref up to (but excluding) Root,
// i.e. ref, ref's parent, ref's grandparent, ... The aggregation key packer
// does not use it: it filters a snapshot's node refs by their own attribute
// without walking their ancestors.
func (t *Tree) Path(ref NodeRef) []NodeRef {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []NodeRef

	for cur := ref; cur != Root; cur = t.storage[cur].parent {
		out = append(out, cur)
	}

	return out
}

// IsAncestor reports whether ancestor appears on descendant's path to Root
// (inclusive of descendant itself).
func (t *Tree) IsAncestor(ancestor, descendant NodeRef) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for cur := descendant; ; cur = t.storage[cur].parent {
		if cur == ancestor {
			return true
		}

		if cur == Root {
			return false
		}
	}
}
