// Package channel implements Channel and the service registry (spec §4.6):
// a channel is a named measurement configuration — its own event table,
// config set, enable flag, and finish lifecycle — and a service is a
// factory that attaches closures to a channel's events at registration
// time.
package channel

import (
	"sync/atomic"

	"github.com/hpctrace/caliper/internal/events"
)

// Channel is a named tuple of (id, config-set, event table, enable-flag).
// Every begin/end/set/push_snapshot is dispatched to all enabled channels
// (spec §4.6); Caliper core owns the set of live channels and walks it on
// every annotation call.
type Channel struct {
	id      uint32
	name    string
	events  *events.Table
	config  map[string]string
	enabled atomic.Bool
}

// New creates a channel with the given id, name, and resolved config. The
// channel starts enabled.
func New(id uint32, name string, config map[string]string) *Channel {
	c := &Channel{
		id:     id,
		name:   name,
		events: events.New(),
		config: config,
	}
	c.enabled.Store(true)

	return c
}

// ID returns the channel's stable ID.
func (c *Channel) ID() uint32 { return c.id }

// Name returns the channel's name.
func (c *Channel) Name() string { return c.name }

// Events returns the channel's event table, for service factories to
// attach hooks to.
func (c *Channel) Events() *events.Table { return c.events }

// Config looks up a resolved configuration value by key.
func (c *Channel) Config(key string) (string, bool) {
	v, ok := c.config[key]

	return v, ok
}

// Enabled reports whether the channel currently participates in
// begin/end/set/push_snapshot dispatch.
func (c *Channel) Enabled() bool { return c.enabled.Load() }

// SetEnabled toggles channel participation without destroying it.
func (c *Channel) SetEnabled(v bool) { c.enabled.Store(v) }

// Finish runs the channel's destruction lifecycle: pre_finish, finish,
// post_finish, in that order, so services get a chance to drain state
// before the channel is discarded (spec §4.6).
func (c *Channel) Finish() {
	events.FireLifecycle(&c.events.PreFinish, c.id)
	events.FireLifecycle(&c.events.Finish, c.id)
	events.FireLifecycle(&c.events.PostFinish, c.id)
}
