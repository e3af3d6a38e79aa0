package attribute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

func TestCreateAttributeIsIdempotentByName(t *testing.T) {
	t.Parallel()

	reg := attribute.New(calitree.New())

	a := reg.Create("region", variant.KindString, attribute.PropNested)
	b := reg.Create("region", variant.KindString, attribute.PropNested)

	assert.Equal(t, a.ID(), b.ID())
}

func TestCreateAttributeTypeDisagreementReturnsExisting(t *testing.T) {
	t.Parallel()

	reg := attribute.New(calitree.New())

	first := reg.Create("metric", variant.KindUint, attribute.PropASValue|attribute.PropAggregatable)
	second := reg.Create("metric", variant.KindString, attribute.PropASValue)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, variant.KindUint, second.Type(), "disagreement returns the existing attribute unchanged")
}

func TestScopeProcessAndThreadAreDistinctAttributes(t *testing.T) {
	t.Parallel()

	reg := attribute.New(calitree.New())

	proc := reg.Create("iteration", variant.KindInt, attribute.PropScopeProcess|attribute.PropASValue)
	thr := reg.Create("iteration", variant.KindInt, attribute.PropScopeThread|attribute.PropASValue)

	assert.NotEqual(t, proc.ID(), thr.ID())
	assert.Equal(t, attribute.ScopeProcess, proc.Properties().Scope())
	assert.Equal(t, attribute.ScopeThread, thr.Properties().Scope())
}

func TestByIDAndByNameLookupWithoutMutation(t *testing.T) {
	t.Parallel()

	reg := attribute.New(calitree.New())
	created := reg.Create("counter", variant.KindUint, attribute.PropASValue)

	require.True(t, reg.ByID(created.ID()).IsValid())
	assert.Equal(t, created.ID(), reg.ByName("counter", attribute.ScopeThread).ID())
	assert.False(t, reg.ByID(999999).IsValid())
	assert.False(t, reg.ByName("nonexistent", attribute.ScopeThread).IsValid())
}

func TestInvalidAttributeSentinel(t *testing.T) {
	t.Parallel()

	assert.False(t, attribute.Invalid.IsValid())
	assert.Equal(t, attribute.InvalidID, attribute.Invalid.ID())
}

func TestOnCreateFiresOnlyForGenuinelyNewAttributes(t *testing.T) {
	t.Parallel()

	reg := attribute.New(calitree.New())

	var fired int

	reg.OnCreate(func(attribute.Attribute) { fired++ })

	reg.Create("x", variant.KindInt, 0)
	reg.Create("x", variant.KindInt, 0)
	reg.Create("y", variant.KindInt, 0)

	assert.Equal(t, 2, fired)
}
