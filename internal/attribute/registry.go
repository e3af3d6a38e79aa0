package attribute

import (
	"sync"

	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// Meta-attribute IDs used to build each attribute's type->properties->name
// path in the shared tree. These are fixed, not drawn from the normal
// per-attribute ID counter: they identify the three levels of the metadata
// path itself, not user-visible attributes.
const (
	metaAttrType       uint32 = 1
	metaAttrProperties uint32 = 2
	metaAttrName       uint32 = 3
)

// firstUserAttrID is the first ID handed out to a real, user-created
// attribute; IDs below it are reserved for the meta-path constants above.
const firstUserAttrID uint32 = 4

// key identifies an attribute slot: SCOPE_PROCESS and SCOPE_THREAD
// attributes that share a name are distinct attributes (Open Question #1 —
// see DESIGN.md), so the registry keys on (name, scope), not name alone.
type key struct {
	name  string
	scope Scope
}

// Registry is Caliper core's attribute table: it creates, idempotently by
// (name, scope), attribute handles backed by a path in the shared
// MetadataTree.
type Registry struct {
	mu       sync.RWMutex
	tree     *calitree.Tree
	byKey    map[key]uint32
	byID     map[uint32]Attribute
	nextID   uint32
	onCreate func(Attribute)
}

// New creates an attribute registry backed by tree. tree is typically
// shared with the rest of the Caliper core so that attribute metadata and
// regular annotations live in the same arena.
func New(tree *calitree.Tree) *Registry {
	return &Registry{
		tree:   tree,
		byKey:  make(map[key]uint32),
		byID:   make(map[uint32]Attribute),
		nextID: firstUserAttrID,
	}
}

// OnCreate registers a callback fired after a genuinely new attribute is
// created (not on an idempotent re-create of an existing name). Caliper
// core wires this to the create_attr event chain.
func (r *Registry) OnCreate(fn func(Attribute)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onCreate = fn
}

// Create returns the attribute for (name, props.Scope()), creating it if
// necessary. A second call with an existing name but a different type
// returns the existing attribute unchanged: this is documented,
// non-error, get-or-create behavior (spec §4.1), not a TypeMismatch.
func (r *Registry) Create(name string, typ variant.Kind, props Properties) Attribute {
	k := key{name: name, scope: props.Scope()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[k]; ok {
		return r.byID[id]
	}

	metaNode := r.tree.GetOrCreateChild(calitree.Root, metaAttrType, variant.NewTypeCode(typ))
	metaNode = r.tree.GetOrCreateChild(metaNode, metaAttrProperties, variant.NewUint(uint64(props)))
	metaNode = r.tree.GetOrCreateChild(metaNode, metaAttrName, variant.NewString(name))

	attr := Attribute{
		id:       r.nextID,
		name:     name,
		typ:      typ,
		props:    props,
		metaNode: metaNode,
	}
	r.nextID++

	r.byKey[k] = attr.id
	r.byID[attr.id] = attr

	if r.onCreate != nil {
		r.onCreate(attr)
	}

	return attr
}

// ByID looks up an attribute by ID without mutation. Returns Invalid if id
// is unknown.
func (r *Registry) ByID(id uint32) Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.byID[id]; ok {
		return a
	}

	return Invalid
}

// ByName looks up an attribute by (name, scope) without mutation. Returns
// Invalid if no such attribute exists.
func (r *Registry) ByName(name string, scope Scope) Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byKey[key{name: name, scope: scope}]; ok {
		return r.byID[id]
	}

	return Invalid
}
