// Package caliper is the instrumentation core: the public surface that
// binds attribute creation, begin/set/end, snapshot composition, and
// channel/service lifecycle into the single entry point an application (or
// a service plugin) programs against (spec §4, §5, §7).
package caliper

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/events"
	"github.com/hpctrace/caliper/internal/obs"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/channel"
	"github.com/hpctrace/caliper/pkg/variant"
)

// Core owns the shared metadata tree, attribute registry, process scope,
// and the live channel set. Applications typically create one Core for the
// process lifetime.
type Core struct {
	tree  *calitree.Tree
	attrs *attribute.Registry

	process *Scope

	threadsMu    sync.RWMutex
	threads      map[uint64]*Scope
	nextThreadID atomic.Uint64

	channelsMu    sync.RWMutex
	channels      []*channel.Channel
	nextChannelID atomic.Uint32

	numSkipped       atomic.Int64
	numDropped       atomic.Int64
	numNestingErrors atomic.Int64
	numTypeMismatch  atomic.Int64
	nestingLogged    atomic.Bool

	logger  *slog.Logger
	metrics *obs.CoreMetrics
}

// SetMetrics attaches a Prometheus self-metrics sink: from this point on,
// blackboard skips, nesting mismatches, and composed snapshots increment its
// counters as they occur. A Core with no attached metrics behaves
// identically, just without the side-channel counters.
func (c *Core) SetMetrics(m *obs.CoreMetrics) { c.metrics = m }

// New creates a Core with a fresh metadata tree and attribute registry.
// logger may be nil, in which case slog.Default() is used.
func New(logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}

	tree := calitree.New()
	attrs := attribute.New(tree)

	c := &Core{
		tree:    tree,
		attrs:   attrs,
		threads: make(map[uint64]*Scope),
		logger:  logger,
	}
	c.process = newScope(attrs)

	attrs.OnCreate(func(a attribute.Attribute) {
		for _, ch := range c.enabledChannels() {
			events.FireAttr(&ch.Events().CreateAttr, ch.ID(), a)
		}
	})

	tree.OnAlloc(func() {
		if c.metrics != nil {
			c.metrics.NodesAllocated.Inc()
		}
	})

	return c
}

// Tree returns the shared metadata tree, for services that need to walk
// recorded paths directly (e.g. an aggregation or export service).
func (c *Core) Tree() *calitree.Tree { return c.tree }

// enabledChannels returns a snapshot of the currently enabled channels.
func (c *Core) enabledChannels() []*channel.Channel {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()

	out := make([]*channel.Channel, 0, len(c.channels))

	for _, ch := range c.channels {
		if ch.Enabled() {
			out = append(out, ch)
		}
	}

	return out
}

// CreateChannel creates, registers, and enables a new channel, firing its
// post_init lifecycle event once fully constructed.
func (c *Core) CreateChannel(name string, config map[string]string) *channel.Channel {
	id := c.nextChannelID.Add(1)
	ch := channel.New(id, name, config)

	c.channelsMu.Lock()
	c.channels = append(c.channels, ch)
	c.channelsMu.Unlock()

	events.FireLifecycle(&ch.Events().PostInit, ch.ID())

	return ch
}

// DestroyChannel runs ch's finish lifecycle, logs a summary of Core's
// soft-error counters (spec §7: "a summary is logged on channel finish"),
// and removes ch from the live channel set.
func (c *Core) DestroyChannel(ch *channel.Channel) {
	ch.Finish()

	stats := c.Stats()
	c.logger.Info("caliper: channel finished",
		"channel", ch.Name(),
		"skipped", stats.Skipped,
		"dropped", stats.Dropped,
		"nesting_errors", stats.NestingErrors,
		"type_mismatch", stats.TypeMismatch,
	)

	c.channelsMu.Lock()
	defer c.channelsMu.Unlock()

	for i, existing := range c.channels {
		if existing == ch {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)

			return
		}
	}
}

// Channels returns the full set of registered channels, enabled or not.
func (c *Core) Channels() []*channel.Channel {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()

	out := make([]*channel.Channel, len(c.channels))
	copy(out, c.channels)

	return out
}

// CreateAttribute creates, or idempotently returns, a named attribute (spec
// §4.1). Firing create_attr is handled by the registry's OnCreate hook
// installed in New, so it fires exactly once per genuinely new attribute.
func (c *Core) CreateAttribute(name string, typ variant.Kind, props attribute.Properties) attribute.Attribute {
	return c.attrs.Create(name, typ, props)
}

// GetAttribute looks up an attribute by ID. Returns attribute.Invalid if id
// is unknown.
func (c *Core) GetAttribute(id uint32) attribute.Attribute {
	return c.attrs.ByID(id)
}

// GetAttributeByName looks up an attribute by (name, scope). Returns
// attribute.Invalid if no such attribute exists.
func (c *Core) GetAttributeByName(name string, scope attribute.Scope) attribute.Attribute {
	return c.attrs.ByName(name, scope)
}

// AcquireThreadScope creates a new thread scope and returns its handle. Every
// call creates a distinct scope; the caller carries the handle explicitly
// rather than having it looked up per goroutine. A new thread scope clones
// every non-NO_CLONE entry
// currently on the process scope (spec §5), and fires create_thread on all
// enabled channels.
func (c *Core) AcquireThreadScope() *ThreadHandle {
	id := c.nextThreadID.Add(1)
	h := &ThreadHandle{id: id}

	scope := newScope(c.attrs)
	c.process.board.CloneNonSkipped(scope.board, func(attr uint32) bool {
		a := c.attrs.ByID(attr)

		return a.IsValid() && a.Properties().Has(attribute.PropNoClone)
	})

	c.threadsMu.Lock()
	c.threads[id] = scope
	c.threadsMu.Unlock()

	for _, ch := range c.enabledChannels() {
		events.FireThread(&ch.Events().CreateThread, ch.ID(), id)
	}

	return h
}

// ReleaseThreadScope discards handle's thread scope and fires
// release_thread on all enabled channels.
func (c *Core) ReleaseThreadScope(handle *ThreadHandle) {
	c.threadsMu.Lock()
	delete(c.threads, handle.id)
	c.threadsMu.Unlock()

	for _, ch := range c.enabledChannels() {
		events.FireThread(&ch.Events().ReleaseThread, ch.ID(), handle.id)
	}
}

// scopeFor resolves the blackboard an attribute's active value lives in:
// the process scope for SCOPE_PROCESS attributes, otherwise the calling
// thread's scope (SCOPE_TASK aliases SCOPE_THREAD — see DESIGN.md). Returns
// nil if handle is required but missing (the caller never acquired a thread
// scope).
func (c *Core) scopeFor(handle *ThreadHandle, attr attribute.Attribute) *Scope {
	if attr.Properties().Scope() == attribute.ScopeProcess {
		return c.process
	}

	return c.threadScope(handle)
}

// threadScope looks up handle's thread scope directly, independent of any
// attribute. Returns nil if handle is nil or its scope has since been
// released.
func (c *Core) threadScope(handle *ThreadHandle) *Scope {
	if handle == nil {
		return nil
	}

	c.threadsMu.RLock()
	defer c.threadsMu.RUnlock()

	return c.threads[handle.id]
}

func (c *Core) recordSkip() {
	c.numSkipped.Add(1)

	if c.metrics != nil {
		c.metrics.BlackboardSkips.Inc()
	}
}

// RecordDrop records a drop in a downstream table fed by the snapshot
// pipeline — e.g. an aggregate.DB wired into a channel's process_snapshot
// hook that ran out of trie or leaf capacity (internal/aggregate's own
// Dropped() counter). Core has no aggregation table of its own, so callers
// that own one report drops here to keep Stats() and the optional
// Prometheus sink as the single place operators look for soft-error counts.
func (c *Core) RecordDrop() {
	c.numDropped.Add(1)

	if c.metrics != nil {
		c.metrics.AggregateDrops.Inc()
	}
}

func (c *Core) recordNestingMismatch(attr attribute.Attribute) {
	c.numNestingErrors.Add(1)

	if c.metrics != nil {
		c.metrics.NestingErrors.Inc()
	}

	if c.nestingLogged.CompareAndSwap(false, true) {
		c.logger.Warn("caliper: end() nesting mismatch", "attribute", attr.Name())
	}
}

// Stats is a point-in-time snapshot of Core's soft-error counters, for
// logging or self-metrics at channel finish (spec §7).
type Stats struct {
	Skipped       int64
	Dropped       int64
	NestingErrors int64
	TypeMismatch  int64
}

// Stats returns the current soft-error counters.
func (c *Core) Stats() Stats {
	return Stats{
		Skipped:       c.numSkipped.Load(),
		Dropped:       c.numDropped.Load(),
		NestingErrors: c.numNestingErrors.Load(),
		TypeMismatch:  c.numTypeMismatch.Load(),
	}
}
