package calitree_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

func TestGetOrCreateChildUniqueness(t *testing.T) {
	t.Parallel()

	tr := calitree.New()

	a := tr.GetOrCreateChild(calitree.Root, 1, variant.NewString("A"))
	again := tr.GetOrCreateChild(calitree.Root, 1, variant.NewString("A"))
	assert.Equal(t, a, again, "identical (parent,attr,value) must return the same node")

	b := tr.GetOrCreateChild(calitree.Root, 1, variant.NewString("B"))
	assert.NotEqual(t, a, b)

	sameAttrDifferentParent := tr.GetOrCreateChild(a, 1, variant.NewString("A"))
	assert.NotEqual(t, a, sameAttrDifferentParent, "same attr+value under a different parent is a distinct node")
}

func TestNodeIDsAreMonotonicAndParentIsEarlier(t *testing.T) {
	t.Parallel()

	tr := calitree.New()

	var refs []calitree.NodeRef

	cur := calitree.Root
	for i := range 10 {
		cur = tr.GetOrCreateChild(cur, uint32(i), variant.NewInt(int64(i)))
		refs = append(refs, cur)
	}

	for i, r := range refs {
		assert.Greater(t, r, calitree.Root)

		if i > 0 {
			assert.Greater(t, r, refs[i-1])
			assert.Equal(t, refs[i-1], tr.Parent(r))
		}
	}
}

func TestChildrenAndPath(t *testing.T) {
	t.Parallel()

	tr := calitree.New()

	a := tr.GetOrCreateChild(calitree.Root, 1, variant.NewString("A"))
	b := tr.GetOrCreateChild(a, 2, variant.NewString("B"))
	c := tr.GetOrCreateChild(a, 3, variant.NewString("C"))

	kids := tr.Children(a)
	assert.ElementsMatch(t, []calitree.NodeRef{b, c}, kids)

	path := tr.Path(b)
	require.Len(t, path, 2)
	assert.Equal(t, b, path[0])
	assert.Equal(t, a, path[1])

	assert.True(t, tr.IsAncestor(a, b))
	assert.True(t, tr.IsAncestor(calitree.Root, b))
	assert.True(t, tr.IsAncestor(b, b))
	assert.False(t, tr.IsAncestor(b, a))
}

func TestConcurrentGetOrCreateChildConverges(t *testing.T) {
	t.Parallel()

	tr := calitree.New()

	const goroutines = 32

	results := make([]calitree.NodeRef, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := range goroutines {
		go func(idx int) {
			defer wg.Done()

			results[idx] = tr.GetOrCreateChild(calitree.Root, 7, variant.NewString("shared"))
		}(i)
	}

	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Equal(t, results[0], results[i], "concurrent identical inserts must converge to one node")
	}

	assert.Equal(t, 1, tr.Len())
}

func TestArenaGrowthAcrossManyAllocations(t *testing.T) {
	t.Parallel()

	tr := calitree.New()
	cur := calitree.Root

	const n = 5000
	for i := range n {
		cur = tr.GetOrCreateChild(cur, uint32(i%11), variant.NewInt(int64(i)))
	}

	assert.Equal(t, n, tr.Len())
}
