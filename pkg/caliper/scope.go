package caliper

import (
	"github.com/hpctrace/caliper/internal/attribute"
	"github.com/hpctrace/caliper/internal/blackboard"
	"github.com/hpctrace/caliper/pkg/variant"
)

// Scope is one blackboard's worth of active state: the process has exactly
// one, and each acquired thread has its own (spec §4.3). Beyond the board
// itself, a Scope keeps a per-attribute LIFO of superseded STORE_AS_VALUE
// values: Board.Exchange only swaps a single previous value, which is not
// enough to unwind begin(x,1); begin(x,2); end(x); end(x) back to "unset"
// (see DESIGN.md).
type Scope struct {
	board      *blackboard.Board
	valueStack map[uint32][]variant.Variant
}

func newScope(registry *attribute.Registry) *Scope {
	return &Scope{
		board:      blackboard.New(registry),
		valueStack: make(map[uint32][]variant.Variant),
	}
}

func (s *Scope) pushValue(attr uint32, previous variant.Variant, hadPrevious bool) {
	if hadPrevious {
		s.valueStack[attr] = append(s.valueStack[attr], previous)
	}
}

// popValue removes and returns the most recently pushed value for attr, if
// any.
func (s *Scope) popValue(attr uint32) (variant.Variant, bool) {
	stack := s.valueStack[attr]
	if len(stack) == 0 {
		return variant.Invalid, false
	}

	v := stack[len(stack)-1]
	s.valueStack[attr] = stack[:len(stack)-1]

	return v, true
}

// ThreadHandle is the opaque capability returned by AcquireThreadScope. It
// identifies one goroutine's thread-scope blackboard; Caliper has no notion
// of task/fiber distinct from a goroutine, so ScopeTask attributes resolve
// to the same per-thread Scope as ScopeThread ones (see DESIGN.md).
type ThreadHandle struct {
	id uint64
}
