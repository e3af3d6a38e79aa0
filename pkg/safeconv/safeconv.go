// Package safeconv provides safe integer type conversion helpers that panic
// on overflow. Used by the metadata tree arena, where node references are
// narrowed to uint32 and a bounds violation indicates a CORE invariant
// failure rather than caller error.
package safeconv

import "math"

// MaxUint32 is the maximum value representable by uint32.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts an int to a uint32, panicking on overflow.
// Use only when the bound has already been checked by the caller's
// allocation discipline (e.g. the arena's max-size guard).
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint64ToInt converts a uint64 to an int, panicking on overflow.
func MustUint64ToInt(v uint64) int {
	if v > uint64(math.MaxInt64) {
		panic("safeconv: uint64 to int overflow")
	}

	return int(v)
}
