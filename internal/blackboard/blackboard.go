// Package blackboard implements the per-scope active-annotation table: a
// fixed-capacity, open-addressed hash table mapping attribute ID to either a
// tree node reference or an inline Variant, per the data model (spec §3,
// §4.3). Boards are created one per scope (process, or per acquired thread
// scope) and guarded by a coarse lock; contention is expected to be low
// because only the process board is ever shared across goroutines.
package blackboard

import (
	"fmt"
	"io"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// Capacity is the fixed slot count: a small prime, per the data model.
const Capacity = 1021

// ProbeStride is the linear-probe step. It must be coprime with Capacity so
// that a probe sequence visits every slot before repeating; 7 and 1021
// (prime) satisfy this.
const ProbeStride = 7

// HighWaterMargin is the safety margin below Capacity at which new (not
// pre-existing) entries start being rejected as skipped, leaving headroom
// for in-flight unset/set races under the table lock.
const HighWaterMargin = 32

const tocWords = (Capacity + 63) / 64

type slotState uint8

const (
	slotEmpty slotState = iota
	slotNode
	slotImmediate
)

type slot struct {
	value variant.Variant
	node  calitree.NodeRef
	attr  uint32
	state slotState
}

// Appender receives the entries a Board produces during Snapshot. It is
// deliberately a minimal structural interface (no import of
// internal/snapshot needed): snapshot.Record implements it without either
// package importing the other.
type Appender interface {
	AppendNode(attr uint32, node calitree.NodeRef) bool
	AppendImmediate(attr uint32, v variant.Variant) bool
}

// Board is the fixed-capacity blackboard. The zero value is not usable; use
// New.
type Board struct {
	mu         sync.Mutex
	registry   *attribute.Registry
	slots      [Capacity]slot
	refToc     [tocWords]uint64
	immToc     [tocWords]uint64
	occupied   int
	numSkipped atomic.Int64
}

// New creates an empty Board. registry is used to resolve an attribute's
// Hidden property when maintaining the tables-of-contents; it may be nil, in
// which case no attribute is ever treated as hidden.
func New(registry *attribute.Registry) *Board {
	return &Board{registry: registry}
}

func probeStart(attr uint32) int {
	return int((uint64(attr) * 2654435761) % Capacity)
}

// locate runs the probe sequence for attr, stopping at the first empty slot
// or a slot already keyed by attr. found reports which case terminated the
// search; when found is false, idx is the first empty slot encountered (or
// -1 if the full probe cycle found neither, which cannot happen given
// Capacity is prime and ProbeStride is coprime with it, short of a caller
// bug).
func (b *Board) locate(attr uint32) (idx int, found bool) {
	idx = probeStart(attr)

	for range Capacity {
		s := &b.slots[idx]

		if s.state == slotEmpty {
			return idx, false
		}

		if s.attr == attr {
			return idx, true
		}

		idx = (idx + ProbeStride) % Capacity
	}

	return -1, false
}

func (b *Board) isHidden(attr uint32) bool {
	if b.registry == nil {
		return false
	}

	a := b.registry.ByID(attr)

	return a.IsValid() && a.Properties().Has(attribute.PropHidden)
}

func setBit(words *[tocWords]uint64, idx int) {
	words[idx/64] |= 1 << uint(idx%64)
}

func clearBit(words *[tocWords]uint64, idx int) {
	words[idx/64] &^= 1 << uint(idx%64)
}

// clearTocLocked removes idx from whichever toc (ref or immediate) it
// currently belongs to, based on the slot's state before it is overwritten.
func (b *Board) clearTocLocked(idx int) {
	switch b.slots[idx].state {
	case slotNode:
		clearBit(&b.refToc, idx)
	case slotImmediate:
		clearBit(&b.immToc, idx)
	}
}

func (b *Board) publishNodeLocked(idx int, hidden bool) {
	clearBit(&b.immToc, idx)

	if hidden {
		clearBit(&b.refToc, idx)
	} else {
		setBit(&b.refToc, idx)
	}
}

func (b *Board) publishImmediateLocked(idx int, hidden bool) {
	clearBit(&b.refToc, idx)

	if hidden {
		clearBit(&b.immToc, idx)
	} else {
		setBit(&b.immToc, idx)
	}
}

// claimOrReject returns true if idx is usable for a new entry: either it was
// already found (overwrite, always allowed), or there is headroom under
// HighWaterMargin to claim a fresh slot.
func (b *Board) claimOrReject(idx int, found bool) bool {
	if idx == -1 {
		b.numSkipped.Add(1)

		return false
	}

	if !found && b.occupied >= Capacity-HighWaterMargin {
		b.numSkipped.Add(1)

		return false
	}

	return true
}

// Set installs an inline Variant for attr, overwriting any existing entry.
// Reports false (and increments NumSkipped) if the table has no room for a
// genuinely new entry.
func (b *Board) Set(attr uint32, value variant.Variant) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !b.claimOrReject(idx, found) {
		return false
	}

	if !found {
		b.occupied++
	} else {
		b.clearTocLocked(idx)
	}

	b.slots[idx] = slot{attr: attr, state: slotImmediate, value: value}
	b.publishImmediateLocked(idx, b.isHidden(attr))

	return true
}

// SetNode installs a tree node reference for attr, overwriting any existing
// entry. Reports false (and increments NumSkipped) on table exhaustion.
func (b *Board) SetNode(attr uint32, node calitree.NodeRef) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !b.claimOrReject(idx, found) {
		return false
	}

	if !found {
		b.occupied++
	} else {
		b.clearTocLocked(idx)
	}

	b.slots[idx] = slot{attr: attr, state: slotNode, node: node}
	b.publishNodeLocked(idx, b.isHidden(attr))

	return true
}

// Get returns the inline Variant stored for attr, if any.
func (b *Board) Get(attr uint32) (variant.Variant, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !found || b.slots[idx].state != slotImmediate {
		return variant.Invalid, false
	}

	return b.slots[idx].value, true
}

// GetNode returns the tree node reference stored for attr, if any.
func (b *Board) GetNode(attr uint32) (calitree.NodeRef, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !found || b.slots[idx].state != slotNode {
		return calitree.Root, false
	}

	return b.slots[idx].node, true
}

// Unset clears attr's entry, if present. A no-op if attr has no active
// entry.
func (b *Board) Unset(attr uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !found {
		return
	}

	b.clearTocLocked(idx)
	b.slots[idx] = slot{}
	b.occupied--
}

// Exchange atomically returns attr's previous inline value (hadPrevious is
// false if it had none, including if it previously held a node reference)
// and stores value in its place. ok is false if the table has no room for a
// genuinely new entry.
func (b *Board) Exchange(attr uint32, value variant.Variant) (previous variant.Variant, hadPrevious bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, found := b.locate(attr)
	if !b.claimOrReject(idx, found) {
		return variant.Invalid, false, false
	}

	if found {
		if b.slots[idx].state == slotImmediate {
			previous = b.slots[idx].value
			hadPrevious = true
		}

		b.clearTocLocked(idx)
	} else {
		b.occupied++
	}

	b.slots[idx] = slot{attr: attr, state: slotImmediate, value: value}
	b.publishImmediateLocked(idx, b.isHidden(attr))

	return previous, hadPrevious, true
}

func iterateBitsLocked(words [tocWords]uint64, visit func(idx int)) {
	for w, word := range words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			visit(w*64 + bit)
			word &= word - 1
		}
	}
}

// Snapshot appends every occupied, non-hidden entry to appender: reference
// entries first, then immediates, matching the snapshot pipeline's fixed
// ordering (spec §4.4). Appends are best-effort; a full record silently
// drops further entries per the capacity-bounded SnapshotRecord contract.
func (b *Board) Snapshot(appender Appender) {
	b.mu.Lock()
	defer b.mu.Unlock()

	iterateBitsLocked(b.refToc, func(idx int) {
		appender.AppendNode(b.slots[idx].attr, b.slots[idx].node)
	})

	iterateBitsLocked(b.immToc, func(idx int) {
		appender.AppendImmediate(b.slots[idx].attr, b.slots[idx].value)
	})
}

// CloneNonSkipped copies every occupied, non-hidden entry into dst, skipping
// any attribute for which skip returns true. This backs new-thread-scope
// creation's "clone non-NO_CLONE process-scope entries" behavior (spec §5).
func (b *Board) CloneNonSkipped(dst *Board, skip func(attr uint32) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	iterateBitsLocked(b.refToc, func(idx int) {
		s := b.slots[idx]
		if !skip(s.attr) {
			dst.SetNode(s.attr, s.node)
		}
	})

	iterateBitsLocked(b.immToc, func(idx int) {
		s := b.slots[idx]
		if !skip(s.attr) {
			dst.Set(s.attr, s.value)
		}
	})
}

// NumSkipped returns the count of updates dropped for lack of table room.
func (b *Board) NumSkipped() int64 { return b.numSkipped.Load() }

// Occupancy returns the number of currently occupied slots.
func (b *Board) Occupancy() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.occupied
}

// PrintStatistics writes a one-line human-readable occupancy summary to w.
func (b *Board) PrintStatistics(w io.Writer) error {
	b.mu.Lock()
	occupied := b.occupied
	skipped := b.numSkipped.Load()
	b.mu.Unlock()

	_, err := fmt.Fprintf(w, "blackboard: %d/%d slots occupied, %d skipped\n", occupied, Capacity, skipped)

	return err
}
