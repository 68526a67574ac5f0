package expr

import (
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// Handle identifies a set in the catalog the expression is evaluated against.
type Handle = setview.Handle

// Op is the kind of an expression node.
type Op uint8

const (
	// OpLeaf selects every value of a set.
	OpLeaf Op = iota
	// OpRange selects the values of a set within bounds.
	OpRange
	// OpIntersect keeps values present in both operands.
	OpIntersect
	// OpUnion keeps values present in either operand.
	OpUnion
	// OpDifference keeps values of the left operand absent from the right one.
	OpDifference
)

func (o Op) String() string {
	switch o {
	case OpLeaf:
		return "leaf"
	case OpRange:
		return "range"
	case OpIntersect:
		return "and"
	case OpUnion:
		return "or"
	case OpDifference:
		return "diff"
	default:
		return "unknown"
	}
}

// IsCombinator reports whether o has two operands.
func (o Op) IsCombinator() bool {
	return o == OpIntersect || o == OpUnion || o == OpDifference
}

// Bounds controls whether the ends of a Range are included.
type Bounds struct {
	LowerInclusive bool
	UpperInclusive bool
}

var (
	// Inclusive includes both ends: [lo, hi].
	Inclusive = Bounds{LowerInclusive: true, UpperInclusive: true}
	// HalfOpen includes the lower end only: [lo, hi).
	HalfOpen = Bounds{LowerInclusive: true}
	// Exclusive excludes both ends: (lo, hi).
	Exclusive = Bounds{}
)

// Node is one node of an expression tree. Fields not used by Op are zero.
type Node[T scalar.Value] struct {
	Op     Op
	Handle Handle
	Lower  T
	Upper  T
	Bounds Bounds
	Left   *Node[T]
	Right  *Node[T]
}

// Leaf selects every value of set h.
func Leaf[T scalar.Value](h Handle) *Node[T] {
	return &Node[T]{Op: OpLeaf, Handle: h}
}

// Range selects the values v of set h with lower <= v <= upper, where each
// comparison is strict when the corresponding bound is exclusive.
func Range[T scalar.Value](h Handle, lower, upper T, b Bounds) *Node[T] {
	return &Node[T]{Op: OpRange, Handle: h, Lower: lower, Upper: upper, Bounds: b}
}

// Intersect keeps the values present in both l and r.
func Intersect[T scalar.Value](l, r *Node[T]) *Node[T] {
	return &Node[T]{Op: OpIntersect, Left: l, Right: r}
}

// Union keeps the values present in l or r.
func Union[T scalar.Value](l, r *Node[T]) *Node[T] {
	return &Node[T]{Op: OpUnion, Left: l, Right: r}
}

// Difference keeps the values of l that are absent from r.
func Difference[T scalar.Value](l, r *Node[T]) *Node[T] {
	return &Node[T]{Op: OpDifference, Left: l, Right: r}
}

// KeyInterval returns the closed order-key interval selected by a Range node.
// ok is false when no value can satisfy the bounds. For a Leaf the full key
// space of T is returned.
func (n *Node[T]) KeyInterval() (lo, hi uint64, ok bool) {
	if n.Op == OpLeaf {
		lo, hi = scalar.KeyBounds[T]()
		return lo, hi, true
	}
	if scalar.IsNaN(n.Lower) || scalar.IsNaN(n.Upper) {
		return 0, 0, false
	}
	lo, hi = scalar.Key(scalar.Canonical(n.Lower)), scalar.Key(scalar.Canonical(n.Upper))
	if !n.Bounds.LowerInclusive {
		if lo == ^uint64(0) {
			return 0, 0, false
		}
		lo++
	}
	if !n.Bounds.UpperInclusive {
		if hi == 0 {
			return 0, 0, false
		}
		hi--
	}
	return lo, hi, lo <= hi
}
