package aggregate

import "github.com/hpctrace/caliper/pkg/variant"

// Kernel folds a stream of numeric observations into running min, max, sum,
// and count, per aggregation attribute (spec §4.5). Average is derived from
// sum/count at flush time rather than tracked incrementally.
type Kernel struct {
	min      float64
	max      float64
	sum      float64
	count    uint64
	hasValue bool
}

func (k *Kernel) update(v float64) {
	if !k.hasValue {
		k.min = v
		k.max = v
		k.hasValue = true
	} else {
		if v < k.min {
			k.min = v
		}

		if v > k.max {
			k.max = v
		}
	}

	k.sum += v
	k.count++
}

// Summary is a Kernel's flush-time view: min, max, sum, count, and the
// derived average.
type Summary struct {
	Min   float64
	Max   float64
	Sum   float64
	Avg   float64
	Count uint64
}

func (k Kernel) summary() Summary {
	s := Summary{Min: k.min, Max: k.max, Sum: k.sum, Count: k.count}
	if k.count > 0 {
		s.Avg = k.sum / float64(k.count)
	}

	return s
}

// variantToFloat64 converts the numeric Variant kinds accepted by the
// aggregation engine (int, uint, double) to float64. Non-numeric kinds
// (string, blob, bool, type-code, id) are not aggregatable and report false.
func variantToFloat64(v variant.Variant) (float64, bool) {
	if f, ok := v.Double(); ok {
		return f, true
	}

	if n, ok := v.Int(); ok {
		return float64(n), true
	}

	if n, ok := v.Uint(); ok {
		return float64(n), true
	}

	return 0, false
}
