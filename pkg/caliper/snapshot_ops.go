package caliper

import (
	"github.com/hpctrace/caliper/internal/events"
	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/channel"
)

// ScopeMask selects which blackboards a snapshot draws from (spec §4.4).
type ScopeMask uint8

// ScopeMask bits. Both may be set; process entries are appended before
// thread entries, matching the pipeline's fixed composition order.
const (
	ScopeMaskProcess ScopeMask = 1 << iota
	ScopeMaskThread
)

// compose builds a Record from the requested scopes plus trigger's entries,
// in the fixed order process -> thread -> trigger (spec §4.4 steps 1-4).
func (c *Core) compose(handle *ThreadHandle, mask ScopeMask, trigger *snapshot.Record) *snapshot.Record {
	if c.metrics != nil {
		c.metrics.Snapshots.Inc()
	}

	rec := snapshot.NewRecord()

	if mask&ScopeMaskProcess != 0 {
		c.process.board.Snapshot(rec)
	}

	if mask&ScopeMaskThread != 0 {
		if scope := c.threadScope(handle); scope != nil {
			scope.board.Snapshot(rec)
		}
	}

	if trigger != nil {
		for _, node := range trigger.Nodes() {
			rec.AppendNode(0, node)
		}

		for i := 0; i < trigger.NumImmediates(); i++ {
			attr, v := trigger.Immediate(i)
			rec.AppendImmediate(attr, v)
		}
	}

	return rec
}

// PullSnapshot composes a Record from the requested scopes and trigger, and
// runs ch's snapshot hook chain over it, but stops short of process_snapshot
// (spec §5): this is the signal-safe half of the pipeline, suitable for
// calling from a signal handler because it allocates no tree nodes and only
// reads existing blackboard state.
func (c *Core) PullSnapshot(handle *ThreadHandle, ch *channel.Channel, mask ScopeMask, trigger *snapshot.Record) *snapshot.Record {
	rec := c.compose(handle, mask, trigger)
	ch.Events().FireSnapshot(ch.ID(), trigger, rec)

	return rec
}

// PushSnapshot runs the full snapshot pipeline: composition, the snapshot
// hook chain, and the process_snapshot hook chain (spec §4.4, all steps).
// Unlike PullSnapshot it is not signal-safe: process_snapshot hooks are free
// to allocate (e.g. an aggregation service inserting into its trie).
func (c *Core) PushSnapshot(handle *ThreadHandle, ch *channel.Channel, mask ScopeMask, trigger *snapshot.Record) {
	rec := c.compose(handle, mask, trigger)
	ch.Events().FireSnapshot(ch.ID(), trigger, rec)
	ch.Events().FireProcessSnapshot(ch.ID(), rec)
}

// Flush runs ch's pre_flush, flush, and flush_finish lifecycle in order,
// giving services (typically an aggregation or export service) a chance to
// drain accumulated state.
func (c *Core) Flush(ch *channel.Channel) {
	events.FireLifecycle(&ch.Events().PreFlush, ch.ID())
	events.FireLifecycle(&ch.Events().Flush, ch.ID())
	events.FireLifecycle(&ch.Events().FlushFinish, ch.ID())
}

// Clear runs ch's clear lifecycle, letting services reset accumulated state
// without a full flush.
func (c *Core) Clear(ch *channel.Channel) {
	events.FireLifecycle(&ch.Events().Clear, ch.ID())
}
