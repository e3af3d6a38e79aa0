package caliper

import "errors"

// Result is the outcome of a Caliper core operation (spec §7).
type Result uint8

// Result values.
const (
	Success Result = iota
	Invalid
	Busy
	Locked
)

// String names a Result for logs and diagnostics.
func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Invalid:
		return "invalid"
	case Busy:
		return "busy"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// ErrExchangeRequiresValueAttribute is returned by Exchange for an
// attribute that is not STORE_AS_VALUE: the data model's "atomically swap
// the active value" operation only has tree-free semantics for inline
// attributes (Open Question #2; see DESIGN.md).
var ErrExchangeRequiresValueAttribute = errors.New("caliper: exchange requires a STORE_AS_VALUE attribute")
