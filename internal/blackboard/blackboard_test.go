package blackboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/blackboard"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	ok := b.Set(42, variant.NewInt(7))
	require.True(t, ok)

	v, found := b.Get(42)
	require.True(t, found)
	assert.Equal(t, int64(7), mustInt(t, v))

	b.Unset(42)

	_, found = b.Get(42)
	assert.False(t, found)
}

func TestSetNodeGetNodeRoundTrip(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	ok := b.SetNode(1, calitree.NodeRef(5))
	require.True(t, ok)

	node, found := b.GetNode(1)
	require.True(t, found)
	assert.Equal(t, calitree.NodeRef(5), node)
}

func TestSetOverwritesExistingEntryInPlace(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	require.True(t, b.Set(1, variant.NewInt(1)))
	require.True(t, b.Set(1, variant.NewInt(2)))

	assert.Equal(t, 1, b.Occupancy())

	v, found := b.Get(1)
	require.True(t, found)
	assert.Equal(t, int64(2), mustInt(t, v))
}

func TestExchangeReturnsPreviousAndStoresNew(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	prev, had, ok := b.Exchange(9, variant.NewInt(1))
	require.True(t, ok)
	assert.False(t, had)
	assert.Equal(t, variant.Invalid, prev)

	prev, had, ok = b.Exchange(9, variant.NewInt(2))
	require.True(t, ok)
	require.True(t, had)
	assert.Equal(t, int64(1), mustInt(t, prev))

	v, found := b.Get(9)
	require.True(t, found)
	assert.Equal(t, int64(2), mustInt(t, v))
}

func TestHiddenAttributeExcludedFromToc(t *testing.T) {
	t.Parallel()

	tree := calitree.New()
	reg := attribute.New(tree)

	hidden := reg.Create("secret", variant.KindInt, attribute.PropHidden|attribute.PropASValue)

	b := blackboard.New(reg)
	require.True(t, b.Set(hidden.ID(), variant.NewInt(1)))

	var appender fakeAppender
	b.Snapshot(&appender)

	assert.Empty(t, appender.immediates, "hidden attributes must not appear in the toc-driven snapshot")

	// still directly gettable — hidden only affects the toc, not storage.
	v, found := b.Get(hidden.ID())
	require.True(t, found)
	assert.Equal(t, int64(1), mustInt(t, v))
}

func TestSnapshotOrdersReferencesBeforeImmediates(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	require.True(t, b.Set(1, variant.NewInt(1)))
	require.True(t, b.SetNode(2, calitree.NodeRef(3)))

	var appender fakeAppender
	b.Snapshot(&appender)

	require.Len(t, appender.nodes, 1)
	require.Len(t, appender.immediates, 1)
	assert.Equal(t, uint32(2), appender.nodes[0].attr)
	assert.Equal(t, uint32(1), appender.immediates[0].attr)
}

func TestTableOverflowIsCountedAsSkipped(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)

	for i := range uint32(1100) {
		b.Set(i+1000000, variant.NewInt(int64(i)))
	}

	assert.Greater(t, b.NumSkipped(), int64(0))

	b.Unset(1000000)
	ok := b.Set(999999999, variant.NewInt(42))
	assert.True(t, ok, "unset must free room for a subsequent set")
}

func TestPrintStatisticsWritesOccupancy(t *testing.T) {
	t.Parallel()

	b := blackboard.New(nil)
	require.True(t, b.Set(1, variant.NewInt(1)))

	var sb strings.Builder
	require.NoError(t, b.PrintStatistics(&sb))
	assert.Contains(t, sb.String(), "1/1021")
}

func TestCloneNonSkippedRespectsSkipPredicate(t *testing.T) {
	t.Parallel()

	src := blackboard.New(nil)
	require.True(t, src.Set(1, variant.NewInt(1)))
	require.True(t, src.Set(2, variant.NewInt(2)))

	dst := blackboard.New(nil)
	src.CloneNonSkipped(dst, func(attr uint32) bool { return attr == 2 })

	_, found := dst.Get(1)
	assert.True(t, found)

	_, found = dst.Get(2)
	assert.False(t, found, "attr 2 was marked NO_CLONE via the skip predicate")
}

func mustInt(t *testing.T, v variant.Variant) int64 {
	t.Helper()

	n, ok := v.Int()
	require.True(t, ok)

	return n
}

type fakeAppender struct {
	nodes      []nodeEntry
	immediates []immEntry
}

type nodeEntry struct {
	attr uint32
	node calitree.NodeRef
}

type immEntry struct {
	attr  uint32
	value variant.Variant
}

func (f *fakeAppender) AppendNode(attr uint32, node calitree.NodeRef) bool {
	f.nodes = append(f.nodes, nodeEntry{attr: attr, node: node})
	return true
}

func (f *fakeAppender) AppendImmediate(attr uint32, v variant.Variant) bool {
	f.immediates = append(f.immediates, immEntry{attr: attr, value: v})
	return true
}
