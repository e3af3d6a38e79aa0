package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(42), MustIntToUint32(42))
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(0), MustIntToUint32(0))
	})

	t.Run("max uint32", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, MustIntToUint32(int(MaxUint32)))
	})

	t.Run("negative panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { MustIntToUint32(-1) })
	})
}

func TestMustUint64ToInt(t *testing.T) {
	t.Parallel()

	t.Run("normal value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 42, MustUint64ToInt(42))
	})

	t.Run("overflow panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { MustUint64ToInt(uint64(math.MaxInt64) + 1) })
	})
}
