package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/internal/snapshot"
	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

func TestRecordAppendNodeRespectsCapacity(t *testing.T) {
	t.Parallel()

	rec := snapshot.NewRecord()

	for i := range snapshot.MaxNodes {
		require.True(t, rec.AppendNode(0, calitree.NodeRef(i+1)))
	}

	assert.False(t, rec.AppendNode(0, calitree.NodeRef(999)), "append beyond capacity must silently fail, not panic")
	assert.Len(t, rec.Nodes(), snapshot.MaxNodes)
}

func TestRecordAppendImmediateRespectsCapacity(t *testing.T) {
	t.Parallel()

	rec := snapshot.NewRecord()

	for i := range snapshot.MaxImmediates {
		require.True(t, rec.AppendImmediate(uint32(i), variant.NewInt(int64(i))))
	}

	assert.False(t, rec.AppendImmediate(999, variant.NewInt(1)))
	assert.Equal(t, snapshot.MaxImmediates, rec.NumImmediates())
}

func TestRecordResetClearsBothArrays(t *testing.T) {
	t.Parallel()

	rec := snapshot.NewRecord()
	rec.AppendNode(0, calitree.NodeRef(1))
	rec.AppendImmediate(1, variant.NewInt(1))

	rec.Reset()

	assert.Empty(t, rec.Nodes())
	assert.Equal(t, 0, rec.NumImmediates())
}
