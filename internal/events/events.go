// Package events implements EventDispatch: a multicast callback registry
// with one slot per named event (spec §4.6). Channels attach closures at
// service-registration time; the CORE fires them in registration order.
//
// Callbacks take a channelID rather than a *channel.Channel so this package
// has no dependency on pkg/channel (which holds a Table itself) — the
// channel package resolves the ID back to its own state if a hook needs
// more than what's passed explicitly.
package events

import (
	"sync"

	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/variant"
)

// AttrHook is fired after a successful create_attribute.
type AttrHook func(channelID uint32, attr attribute.Attribute)

// UpdateHook wraps a begin/set/end update.
type UpdateHook func(channelID uint32, attr attribute.Attribute, value variant.Variant)

// ThreadHook wraps thread lifecycle events.
type ThreadHook func(channelID uint32, scopeID uint64)

// SnapshotHook is fired during snapshot composition; trigger holds the
// caller-supplied trigger entries, record is the in-progress snapshot the
// hook may append to.
type SnapshotHook func(channelID uint32, trigger, record *snapshot.Record)

// ProcessSnapshotHook is fired once snapshot composition is complete.
type ProcessSnapshotHook func(channelID uint32, record *snapshot.Record)

// LifecycleHook wraps a channel-lifecycle event (flush, clear, init,
// finish, ...) that carries no payload beyond the channel's own ID.
type LifecycleHook func(channelID uint32)

// MemHook wraps the optional allocation-tracking instrumentation events.
type MemHook func(channelID uint32, addr uintptr, size uintptr)

// hookList is a registration-order list of closures of one event kind,
// guarded for concurrent registration and firing.
type hookList[F any] struct {
	mu  sync.RWMutex
	fns []F
}

// Add appends fn, to be fired after every previously registered hook of the
// same kind.
func (h *hookList[F]) Add(fn F) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fns = append(h.fns, fn)
}

// Snapshot returns the registered hooks in registration order. Callers
// range over the result rather than hold the list locked while firing, so a
// hook may itself register a new hook of the same kind without deadlocking.
func (h *hookList[F]) Snapshot() []F {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]F, len(h.fns))
	copy(out, h.fns)

	return out
}

// Table is a channel's complete event table: one hookList per event kind
// enumerated in spec §4.6.
type Table struct {
	CreateAttr hookList[AttrHook]

	PreBegin  hookList[UpdateHook]
	PostBegin hookList[UpdateHook]
	PreSet    hookList[UpdateHook]
	PostSet   hookList[UpdateHook]
	PreEnd    hookList[UpdateHook]
	PostEnd   hookList[UpdateHook]

	CreateThread  hookList[ThreadHook]
	ReleaseThread hookList[ThreadHook]

	Snapshot        hookList[SnapshotHook]
	ProcessSnapshot hookList[ProcessSnapshotHook]

	PreFlush    hookList[LifecycleHook]
	Flush       hookList[LifecycleHook]
	FlushFinish hookList[LifecycleHook]
	Clear       hookList[LifecycleHook]

	PostInit   hookList[LifecycleHook]
	PreFinish  hookList[LifecycleHook]
	Finish     hookList[LifecycleHook]
	PostFinish hookList[LifecycleHook]

	TrackMem   hookList[MemHook]
	UntrackMem hookList[MemHook]
}

// New returns an empty event table.
func New() *Table { return &Table{} }

// FireAttr fires every registered AttrHook, in registration order.
func FireAttr(list *hookList[AttrHook], channelID uint32, attr attribute.Attribute) {
	for _, fn := range list.Snapshot() {
		fn(channelID, attr)
	}
}

// FireUpdate fires every registered UpdateHook, in registration order.
func FireUpdate(list *hookList[UpdateHook], channelID uint32, attr attribute.Attribute, value variant.Variant) {
	for _, fn := range list.Snapshot() {
		fn(channelID, attr, value)
	}
}

// FireThread fires every registered ThreadHook, in registration order.
func FireThread(list *hookList[ThreadHook], channelID uint32, scopeID uint64) {
	for _, fn := range list.Snapshot() {
		fn(channelID, scopeID)
	}
}

// FireSnapshot fires every registered SnapshotHook, in registration order.
func (t *Table) FireSnapshot(channelID uint32, trigger, record *snapshot.Record) {
	for _, fn := range t.Snapshot.Snapshot() {
		fn(channelID, trigger, record)
	}
}

// FireProcessSnapshot fires every registered ProcessSnapshotHook.
func (t *Table) FireProcessSnapshot(channelID uint32, record *snapshot.Record) {
	for _, fn := range t.ProcessSnapshot.Snapshot() {
		fn(channelID, record)
	}
}

// FireLifecycle fires every registered LifecycleHook, in registration
// order.
func FireLifecycle(list *hookList[LifecycleHook], channelID uint32) {
	for _, fn := range list.Snapshot() {
		fn(channelID)
	}
}

// FireMem fires every registered MemHook, in registration order.
func FireMem(list *hookList[MemHook], channelID uint32, addr, size uintptr) {
	for _, fn := range list.Snapshot() {
		fn(channelID, addr, size)
	}
}
