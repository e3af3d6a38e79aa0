// Package attribute implements the named, typed, propertied attribute
// handle described by the data model: an attribute is a stable uint32 ID
// backed by a path in the metadata tree (type node -> properties node ->
// name node), so attribute metadata is queryable by the same tree-walk
// mechanics as regular annotations.
package attribute

import (
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// Properties is the property bitmask that drives attribute runtime
// behavior, per the data model.
type Properties uint32

// Property bits. AutoCombine has no explicit bit: it is the behavior when
// StoreAsValue is absent (the default), per the data model.
const (
	PropStoreAsValue Properties = 1 << iota
	PropNoClone
	PropNested
	PropSkipEvents
	PropHidden
	PropAggregatable
	PropScopeProcess
	PropScopeThread
	PropScopeTask
)

// PropASValue is a naming-convention alias for PropStoreAsValue.
const PropASValue = PropStoreAsValue

// Has reports whether bit is set in p.
func (p Properties) Has(bit Properties) bool { return p&bit != 0 }

// AutoCombine reports whether p uses the default reference-nesting
// behavior (true whenever StoreAsValue is not set).
func (p Properties) AutoCombine() bool { return !p.Has(PropStoreAsValue) }

// Scope identifies which blackboard an attribute's active value lives in.
type Scope uint8

// Scope values.
const (
	ScopeThread Scope = iota
	ScopeProcess
	ScopeTask
)

// String names a Scope for logs and diagnostics.
func (s Scope) String() string {
	switch s {
	case ScopeProcess:
		return "process"
	case ScopeTask:
		return "task"
	default:
		return "thread"
	}
}

// Scope derives the attribute's scope from its property bits. The data
// model does not name a default; this rewrite defaults to ScopeThread,
// matching how instrumentation libraries in this space conventionally
// treat unscoped attributes (see DESIGN.md Open Question #1).
func (p Properties) Scope() Scope {
	switch {
	case p.Has(PropScopeProcess):
		return ScopeProcess
	case p.Has(PropScopeTask):
		return ScopeTask
	default:
		return ScopeThread
	}
}

// InvalidID is the sentinel ID for the invalid attribute: all queries
// against it yield empty results rather than an error.
const InvalidID uint32 = 0

// Attribute is a named, typed, propertied annotation key.
type Attribute struct {
	name     string
	metaNode calitree.NodeRef
	id       uint32
	typ      variant.Kind
	props    Properties
}

// Invalid is the sentinel attribute returned for unknown lookups.
var Invalid = Attribute{id: InvalidID}

// ID returns the attribute's stable, creation-order ID.
func (a Attribute) ID() uint32 { return a.id }

// Name returns the attribute's unique name.
func (a Attribute) Name() string { return a.name }

// Type returns the attribute's declared Variant kind.
func (a Attribute) Type() variant.Kind { return a.typ }

// Properties returns the attribute's property bitmask.
func (a Attribute) Properties() Properties { return a.props }

// IsValid reports whether a is a real, registered attribute.
func (a Attribute) IsValid() bool { return a.id != InvalidID }

// MetaNode returns the tree node at the end of this attribute's
// type->properties->name metadata path.
func (a Attribute) MetaNode() calitree.NodeRef { return a.metaNode }
