package caliper

import (
	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/events"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// typeCheck reports whether value matches attr's declared type, recording a
// soft TypeMismatch error if not (spec §7: rejected, counted, no event
// fires).
func (c *Core) typeCheck(attr attribute.Attribute, value variant.Variant) bool {
	if value.Kind() == attr.Type() {
		return true
	}

	c.numTypeMismatch.Add(1)

	return false
}

// Begin pushes value onto attr's active stack in the scope resolved for the
// calling context (spec §4.1). For a STORE_AS_VALUE attribute the previous
// value, if any, is saved for End to restore; for a reference attribute the
// metadata tree records the nesting by construction (the new node's parent
// is whatever node attr currently points to).
func (c *Core) Begin(handle *ThreadHandle, attr attribute.Attribute, value variant.Variant) Result {
	if !attr.IsValid() {
		return Invalid
	}

	if !c.typeCheck(attr, value) {
		return Invalid
	}

	scope := c.scopeFor(handle, attr)
	if scope == nil {
		return Invalid
	}

	skipEvents := attr.Properties().Has(attribute.PropSkipEvents)
	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PreBegin, ch.ID(), attr, value)
		}
	}

	var ok bool

	if attr.Properties().Has(attribute.PropASValue) {
		prev, hadPrev, exchangeOK := scope.board.Exchange(attr.ID(), value)
		ok = exchangeOK

		if ok {
			scope.pushValue(attr.ID(), prev, hadPrev)
		}
	} else {
		parent, found := scope.board.GetNode(attr.ID())
		if !found {
			parent = calitree.Root
		}

		node := c.tree.GetOrCreateChild(parent, attr.ID(), value)
		ok = scope.board.SetNode(attr.ID(), node)
	}

	if !ok {
		c.recordSkip()

		return Busy
	}

	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PostBegin, ch.ID(), attr, value)
		}
	}

	return Success
}

// Set unconditionally overwrites attr's active value, independent of any
// begin/end nesting in progress (spec §4.1): it does not push onto the
// nesting stack, and End afterward still unwinds to whatever begin/end pair
// was active before the Set.
func (c *Core) Set(handle *ThreadHandle, attr attribute.Attribute, value variant.Variant) Result {
	if !attr.IsValid() {
		return Invalid
	}

	if !c.typeCheck(attr, value) {
		return Invalid
	}

	scope := c.scopeFor(handle, attr)
	if scope == nil {
		return Invalid
	}

	skipEvents := attr.Properties().Has(attribute.PropSkipEvents)
	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PreSet, ch.ID(), attr, value)
		}
	}

	var ok bool

	if attr.Properties().Has(attribute.PropASValue) {
		ok = scope.board.Set(attr.ID(), value)
	} else {
		// Set installs a sibling of whatever node attr currently points to,
		// not a child of it: it replaces the current value at the same
		// nesting depth rather than nesting one level deeper the way Begin
		// does (spec §4.1's get_or_create_child(sibling-of-current, attr, v)).
		parent := calitree.Root
		if current, found := scope.board.GetNode(attr.ID()); found {
			parent = c.tree.Parent(current)
		}

		node := c.tree.GetOrCreateChild(parent, attr.ID(), value)
		ok = scope.board.SetNode(attr.ID(), node)
	}

	if !ok {
		c.recordSkip()

		return Busy
	}

	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PostSet, ch.ID(), attr, value)
		}
	}

	return Success
}

// End pops attr's active stack in the scope resolved for the calling
// context (spec §4.1). Ending an attribute with no active entry at all is a
// nesting mismatch: a soft error, counted and logged once, that leaves the
// blackboard untouched beyond the (no-op) unset.
func (c *Core) End(handle *ThreadHandle, attr attribute.Attribute) Result {
	if !attr.IsValid() {
		return Invalid
	}

	scope := c.scopeFor(handle, attr)
	if scope == nil {
		return Invalid
	}

	skipEvents := attr.Properties().Has(attribute.PropSkipEvents)
	asValue := attr.Properties().Has(attribute.PropASValue)

	endingValue, hadEntry := c.currentValue(scope, attr, asValue)

	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PreEnd, ch.ID(), attr, endingValue)
		}
	}

	if !hadEntry {
		c.recordNestingMismatch(attr)
	} else if asValue {
		if prev, hadPrev := scope.popValue(attr.ID()); hadPrev {
			scope.board.Set(attr.ID(), prev)
		} else {
			scope.board.Unset(attr.ID())
		}
	} else {
		node, _ := scope.board.GetNode(attr.ID())

		parent := c.tree.Parent(node)
		if parent == calitree.Root {
			scope.board.Unset(attr.ID())
		} else {
			scope.board.SetNode(attr.ID(), parent)
		}
	}

	if !skipEvents {
		for _, ch := range c.enabledChannels() {
			events.FireUpdate(&ch.Events().PostEnd, ch.ID(), attr, endingValue)
		}
	}

	return Success
}

// Value returns attr's presently active value as resolved for handle, and
// whether one exists. It performs no mutation and fires no events.
func (c *Core) Value(handle *ThreadHandle, attr attribute.Attribute) (variant.Variant, bool) {
	if !attr.IsValid() {
		return variant.Invalid, false
	}

	scope := c.scopeFor(handle, attr)
	if scope == nil {
		return variant.Invalid, false
	}

	return c.currentValue(scope, attr, attr.Properties().Has(attribute.PropASValue))
}

// currentValue returns attr's presently active value in scope (for event
// payload purposes) and whether one exists at all.
func (c *Core) currentValue(scope *Scope, attr attribute.Attribute, asValue bool) (variant.Variant, bool) {
	if asValue {
		return scope.board.Get(attr.ID())
	}

	node, ok := scope.board.GetNode(attr.ID())
	if !ok {
		return variant.Invalid, false
	}

	return c.tree.Value(node), true
}

// Exchange atomically swaps attr's active value for value, returning the
// value that was active beforehand. Only STORE_AS_VALUE attributes support
// this (see ErrExchangeRequiresValueAttribute and DESIGN.md Open Question
// #2); it does not interact with the nesting stack Begin/End maintain.
func (c *Core) Exchange(handle *ThreadHandle, attr attribute.Attribute, value variant.Variant) (variant.Variant, Result, error) {
	if !attr.Properties().Has(attribute.PropASValue) {
		return variant.Invalid, Invalid, ErrExchangeRequiresValueAttribute
	}

	if !attr.IsValid() {
		return variant.Invalid, Invalid, nil
	}

	if !c.typeCheck(attr, value) {
		return variant.Invalid, Invalid, nil
	}

	scope := c.scopeFor(handle, attr)
	if scope == nil {
		return variant.Invalid, Invalid, nil
	}

	prev, _, ok := scope.board.Exchange(attr.ID(), value)
	if !ok {
		c.recordSkip()

		return variant.Invalid, Busy, nil
	}

	return prev, Success, nil
}
