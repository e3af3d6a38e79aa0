// Package aggregate implements the AggregationDB: a per-thread, trie-indexed
// key/value table that folds many snapshots into O(distinct-keys) summary
// records (spec §4.5). One DB is owned by a single goroutine at a time
// (single-writer discipline, spec §5); the lock exists only to let the
// flush/clear path (which may run on a different goroutine) observe a
// consistent trie.
package aggregate

import (
	"sync"
	"sync/atomic"

	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/safeconv"
	"github.com/hpctrace/caliper/pkg/variant"

	"github.com/hpctrace/caliper/internal/snapshot"
)

// MaxKeyLength is the aggregation key's max packed length; keys that would
// overflow it are counted as skipped rather than truncated (spec §4.5).
const MaxKeyLength = 32

// MaxTrieNodes and MaxLeaves cap the two independent block allocators
// backing the key-trie and its leaf kernel arrays, bounding memory per
// spec §4.5 ("capped at ~2 million entries each").
const (
	MaxTrieNodes = 2_000_000
	MaxLeaves    = 2_000_000
)

const trieFanout = 256

// trieNode is a single byte-indexed step of the key trie: 256 successors,
// one per possible key byte, plus the index of the leaf (if any) reached by
// ending the key at this node. -1 denotes "absent" in both fields.
type trieNode struct {
	children [trieFanout]int32
	leaf     int32
}

func newTrieNode() trieNode {
	n := trieNode{leaf: -1}
	for i := range n.children {
		n.children[i] = -1
	}

	return n
}

// leaf is a key-trie leaf: the original packed key (needed to decode it back
// into node refs + immediates at flush time), one Kernel per aggregation
// attribute observed under this key, and the total snapshot count.
type leaf struct {
	key     []byte
	kernels map[uint32]*Kernel
	count   uint64
}

// DB is a per-thread AggregationDB.
type DB struct {
	mu sync.Mutex

	tree *calitree.Tree

	refKeyAttrs map[uint32]bool
	immKeyAttrs []uint32
	aggAttrs    map[uint32]bool

	nodes  []trieNode
	leaves []leaf
	root   int32

	dropped    atomic.Int64
	skippedKey atomic.Int64
}

// New creates an empty AggregationDB bound to tree (for resolving node
// attributes when packing keys). refKeyAttrs is the active reference-key
// attribute set, immKeyAttrs the active immediate-key attribute set (in a
// fixed order shared with the compressed-key codec), and aggAttrs the set of
// attributes whose immediate values feed the per-leaf kernels.
func New(tree *calitree.Tree, refKeyAttrs, immKeyAttrs, aggAttrs []uint32) *DB {
	db := &DB{
		tree:        tree,
		refKeyAttrs: toSet(refKeyAttrs),
		immKeyAttrs: append([]uint32(nil), immKeyAttrs...),
		aggAttrs:    toSet(aggAttrs),
	}
	db.resetLocked()

	return db
}

func toSet(ids []uint32) map[uint32]bool {
	m := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}

func (db *DB) resetLocked() {
	db.nodes = make([]trieNode, 1, 64)
	db.nodes[0] = newTrieNode()
	db.leaves = db.leaves[:0]
	db.root = 0
}

// packKey builds the aggregation key for rec: the node refs whose own
// attribute is in the active ref-key set (ancestors of rec's nodes are not
// examined, so a node is left out even when one of its ancestors carries a
// key attribute), and the immediates whose attribute is in the
// active immediate-key set, encoded with the same codec used for general
// compressed snapshots (spec's CompressedSnapshotRecord collapsing property
// — identical filtered node-id sets and immediate subsets produce
// byte-identical keys — already gives pack_key its required semantics; see
// DESIGN.md).
func (db *DB) packKey(rec *snapshot.Record) ([]byte, bool) {
	filtered := snapshot.NewRecord()

	for _, node := range rec.Nodes() {
		attr := db.tree.Attr(node)
		if db.refKeyAttrs[attr] {
			if !filtered.AppendNode(attr, node) {
				return nil, false
			}
		}
	}

	for i := range rec.NumImmediates() {
		attr, v := rec.Immediate(i)

		matches := false

		for _, cand := range db.immKeyAttrs {
			if cand == attr {
				matches = true

				break
			}
		}

		if matches && !filtered.AppendImmediate(attr, v) {
			return nil, false
		}
	}

	key := snapshot.Encode(filtered, db.immKeyAttrs)
	if len(key) > MaxKeyLength {
		return nil, false
	}

	return key, true
}

func (db *DB) allocNodeLocked() (int32, bool) {
	if len(db.nodes) >= MaxTrieNodes {
		return -1, false
	}

	db.nodes = append(db.nodes, newTrieNode())

	return int32(safeconv.MustIntToUint32(len(db.nodes) - 1)), true
}

func (db *DB) allocLeafLocked(key []byte) (int32, bool) {
	if len(db.leaves) >= MaxLeaves {
		return -1, false
	}

	db.leaves = append(db.leaves, leaf{
		key:     append([]byte(nil), key...),
		kernels: make(map[uint32]*Kernel),
	})

	return int32(safeconv.MustIntToUint32(len(db.leaves) - 1)), true
}

// walkOrExtendLocked walks the trie for key, allocating nodes and, at the
// end, a leaf, as needed. Reports false if an allocator is exhausted; the
// caller counts that snapshot as dropped.
func (db *DB) walkOrExtendLocked(key []byte) (leafIdx int32, ok bool) {
	cur := db.root

	for _, b := range key {
		next := db.nodes[cur].children[b]
		if next == -1 {
			allocated, ok := db.allocNodeLocked()
			if !ok {
				return -1, false
			}

			db.nodes[cur].children[b] = allocated
			next = allocated
		}

		cur = next
	}

	if db.nodes[cur].leaf == -1 {
		idx, ok := db.allocLeafLocked(key)
		if !ok {
			return -1, false
		}

		db.nodes[cur].leaf = idx
	}

	return db.nodes[cur].leaf, true
}

// Process folds rec into the DB: packs its aggregation key, walks/extends
// the trie, and updates one Kernel per aggregation attribute present among
// rec's immediates (spec §4.5, "Process snapshot").
func (db *DB) Process(rec *snapshot.Record) {
	key, ok := db.packKey(rec)
	if !ok {
		db.skippedKey.Add(1)

		return
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	leafIdx, ok := db.walkOrExtendLocked(key)
	if !ok {
		db.dropped.Add(1)

		return
	}

	lf := &db.leaves[leafIdx]
	lf.count++

	for i := range rec.NumImmediates() {
		attr, v := rec.Immediate(i)
		if !db.aggAttrs[attr] {
			continue
		}

		f, ok := variantToFloat64(v)
		if !ok {
			continue
		}

		k, exists := lf.kernels[attr]
		if !exists {
			k = &Kernel{}
			lf.kernels[attr] = k
		}

		k.update(f)
	}
}

// FlushedRecord is one synthetic record emitted by Flush: a decoded key
// (node refs + immediate entries) plus a per-attribute Summary and the total
// fold count.
type FlushedRecord struct {
	Nodes      []calitree.NodeRef
	Immediates map[uint32]variant.Variant
	Kernels    map[uint32]Summary
	Count      uint64
}

// Flush walks every leaf in the trie, decodes its key, and passes a
// FlushedRecord to sink for each. Order among leaves is unspecified (spec
// §4.5 says "in any order"); this implementation walks leaves in allocation
// order, which is deterministic for tests but not contractually ordered.
func (db *DB) Flush(sink func(FlushedRecord)) {
	db.mu.Lock()
	leavesCopy := make([]leaf, len(db.leaves))
	copy(leavesCopy, db.leaves)
	immKeyAttrs := append([]uint32(nil), db.immKeyAttrs...)
	db.mu.Unlock()

	for _, lf := range leavesCopy {
		if lf.count == 0 {
			continue
		}

		nodes, immediates, _, err := snapshot.Decode(lf.key, immKeyAttrs)
		if err != nil {
			continue
		}

		kernels := make(map[uint32]Summary, len(lf.kernels))
		for attr, k := range lf.kernels {
			kernels[attr] = k.summary()
		}

		sink(FlushedRecord{
			Nodes:      nodes,
			Immediates: immediates,
			Kernels:    kernels,
			Count:      lf.count,
		})
	}
}

// Clear retires the DB's current trie and returns a column-compressed,
// hibernated snapshot of it (spec's "Swap out each thread's trie"; see
// hibernate.go for the LZ4 column format). The live DB is empty and ready
// for new keys immediately after Clear returns.
func (db *DB) Clear() *Hibernated {
	db.mu.Lock()
	defer db.mu.Unlock()

	retired := hibernate(db.leaves)
	db.resetLocked()

	return retired
}

// Dropped returns the count of snapshots discarded because a trie-node or
// leaf allocator was exhausted.
func (db *DB) Dropped() int64 { return db.dropped.Load() }

// SkippedKey returns the count of snapshots whose packed key exceeded
// MaxKeyLength.
func (db *DB) SkippedKey() int64 { return db.skippedKey.Load() }

// LeafCount returns the number of distinct keys currently tracked.
func (db *DB) LeafCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.leaves)
}
