package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	rec := snapshot.NewRecord()
	rec.AppendNode(0, calitree.NodeRef(3))
	rec.AppendNode(0, calitree.NodeRef(7))
	rec.AppendImmediate(10, variant.NewInt(42))
	rec.AppendImmediate(11, variant.NewString("loop"))

	candidates := []uint32{10, 11, 12}

	encoded := snapshot.Encode(rec, candidates)

	nodes, values, consumed, err := snapshot.Decode(encoded, candidates)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, []calitree.NodeRef{3, 7}, nodes)

	require.Contains(t, values, uint32(10))
	n, ok := values[10].Int()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)

	require.Contains(t, values, uint32(11))
	s, ok := values[11].Str()
	require.True(t, ok)
	assert.Equal(t, "loop", s)

	assert.NotContains(t, values, uint32(12), "candidate with no matching immediate must be absent")
}

func TestEncodeDecodeWithNoImmediatesOmitsBitfield(t *testing.T) {
	t.Parallel()

	rec := snapshot.NewRecord()
	rec.AppendNode(0, calitree.NodeRef(1))

	encoded := snapshot.Encode(rec, []uint32{1, 2, 3})

	nodes, values, _, err := snapshot.Decode(encoded, []uint32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []calitree.NodeRef{1}, nodes)
	assert.Nil(t, values)
}

func TestEncodeProducesIdenticalKeysForMatchingPathAndImmediates(t *testing.T) {
	t.Parallel()

	candidates := []uint32{5}

	recA := snapshot.NewRecord()
	recA.AppendNode(0, calitree.NodeRef(1))
	recA.AppendImmediate(5, variant.NewInt(100))

	recB := snapshot.NewRecord()
	recB.AppendNode(0, calitree.NodeRef(1))
	recB.AppendImmediate(5, variant.NewInt(100))

	assert.Equal(t, snapshot.Encode(recA, candidates), snapshot.Encode(recB, candidates))
}

func TestDecodeTruncatedBufferReturnsError(t *testing.T) {
	t.Parallel()

	_, _, _, err := snapshot.Decode(nil, []uint32{1})
	assert.ErrorIs(t, err, snapshot.ErrTruncated)
}
