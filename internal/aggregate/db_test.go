package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/internal/aggregate"
	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

const (
	loopAttr = 1
	timeAttr = 2
)

func buildTree(t *testing.T) (*calitree.Tree, calitree.NodeRef, calitree.NodeRef) {
	t.Helper()

	tree := calitree.New()
	a := tree.GetOrCreateChild(calitree.Root, loopAttr, variant.NewString("main"))
	b := tree.GetOrCreateChild(calitree.Root, loopAttr, variant.NewString("other"))

	return tree, a, b
}

func TestProcessFoldsRepeatedSnapshotsIntoOneLeaf(t *testing.T) {
	t.Parallel()

	tree, nodeA, _ := buildTree(t)
	db := aggregate.New(tree, []uint32{loopAttr}, nil, []uint32{timeAttr})

	for i := range 5 {
		rec := snapshot.NewRecord()
		rec.AppendNode(loopAttr, nodeA)
		rec.AppendImmediate(timeAttr, variant.NewDouble(float64(i+1)))
		db.Process(rec)
	}

	assert.Equal(t, 1, db.LeafCount())

	var got []aggregate.FlushedRecord
	db.Flush(func(r aggregate.FlushedRecord) { got = append(got, r) })

	require.Len(t, got, 1)
	assert.Equal(t, uint64(5), got[0].Count)

	k := got[0].Kernels[timeAttr]
	assert.Equal(t, 1.0, k.Min)
	assert.Equal(t, 5.0, k.Max)
	assert.Equal(t, 15.0, k.Sum)
	assert.Equal(t, 3.0, k.Avg)
	assert.Equal(t, uint64(5), k.Count)
}

func TestProcessDistinctKeysProduceDistinctLeaves(t *testing.T) {
	t.Parallel()

	tree, nodeA, nodeB := buildTree(t)
	db := aggregate.New(tree, []uint32{loopAttr}, nil, []uint32{timeAttr})

	recA := snapshot.NewRecord()
	recA.AppendNode(loopAttr, nodeA)
	recA.AppendImmediate(timeAttr, variant.NewDouble(1))
	db.Process(recA)

	recB := snapshot.NewRecord()
	recB.AppendNode(loopAttr, nodeB)
	recB.AppendImmediate(timeAttr, variant.NewDouble(2))
	db.Process(recB)

	assert.Equal(t, 2, db.LeafCount())
}

func TestFlushDecodesKeyBackToNodesAndImmediates(t *testing.T) {
	t.Parallel()

	tree, nodeA, _ := buildTree(t)
	db := aggregate.New(tree, []uint32{loopAttr}, []uint32{99}, []uint32{timeAttr})

	rec := snapshot.NewRecord()
	rec.AppendNode(loopAttr, nodeA)
	rec.AppendImmediate(99, variant.NewInt(7))
	rec.AppendImmediate(timeAttr, variant.NewDouble(2.5))
	db.Process(rec)

	var got aggregate.FlushedRecord
	db.Flush(func(r aggregate.FlushedRecord) { got = r })

	assert.Equal(t, []calitree.NodeRef{nodeA}, got.Nodes)
	v, ok := got.Immediates[99]
	require.True(t, ok)
	n, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)
}

func TestClearHibernatesAndResetsTheLiveTrie(t *testing.T) {
	t.Parallel()

	tree, nodeA, _ := buildTree(t)
	db := aggregate.New(tree, []uint32{loopAttr}, nil, []uint32{timeAttr})

	rec := snapshot.NewRecord()
	rec.AppendNode(loopAttr, nodeA)
	rec.AppendImmediate(timeAttr, variant.NewDouble(9))
	db.Process(rec)

	require.Equal(t, 1, db.LeafCount())

	retired := db.Clear()
	require.NotNil(t, retired)
	assert.Equal(t, 0, db.LeafCount())
	assert.Equal(t, 1, retired.LeafCount)

	leaves := retired.Unhibernate()
	require.Len(t, leaves, 1)
	assert.Equal(t, uint64(1), leaves[0].Count)

	k := leaves[0].Kernels[timeAttr]
	assert.Equal(t, 9.0, k.Sum)
}

func TestSkippedKeyCounterIncrementsOnOversizeKey(t *testing.T) {
	t.Parallel()

	const longStringAttr = 77

	tree := calitree.New()
	db := aggregate.New(tree, nil, []uint32{longStringAttr}, nil)

	rec := snapshot.NewRecord()
	rec.AppendImmediate(longStringAttr, variant.NewString(string(make([]byte, 40))))

	db.Process(rec)

	assert.Equal(t, int64(1), db.SkippedKey())
	assert.Equal(t, 0, db.LeafCount())
}
