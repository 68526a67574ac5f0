// Package partition divides the key domain of a query into disjoint chunks
// and rewrites the expression for each chunk so that chunks evaluate
// independently.
//
// All bounds are closed intervals of order keys (see scalar.Key). A closed
// upper bound represents MaxUint64 without overflow.
package partition

import (
	"math/bits"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/scalar"
)

// Node is an expression compiled to key space. Leaves carry the closed key
// interval [Lo, Hi] they select from set Handle; Lo > Hi selects nothing.
type Node struct {
	Op     expr.Op
	Handle expr.Handle
	Lo, Hi uint64
	Left   *Node
	Right  *Node
}

// Empty reports whether a leaf selects nothing.
func (n *Node) Empty() bool { return n.Lo > n.Hi }

// Chunk is one independently evaluable unit of a query.
type Chunk struct {
	Index  int
	Lo, Hi uint64
	Root   *Node
}

// Interval is a closed key interval.
type Interval struct {
	Lo, Hi uint64
}

// Spanner reports the key span of a set. *setview.Catalog implements it.
type Spanner interface {
	Span(h expr.Handle) (lo, hi uint64, ok bool)
}

// Compile converts a validated expression into key space. Range bounds become
// closed key intervals; a Leaf selects every key of T.
func Compile[T scalar.Value](n *expr.Node[T]) *Node {
	var stack []*Node
	_ = expr.PostOrder(n, func(e *expr.Node[T]) error {
		out := &Node{Op: e.Op, Handle: e.Handle}
		switch e.Op {
		case expr.OpLeaf, expr.OpRange:
			lo, hi, ok := e.KeyInterval()
			if !ok {
				lo, hi = 1, 0
			}
			out.Lo, out.Hi = lo, hi
		default:
			out.Left, out.Right = stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
		}
		stack = append(stack, out)
		return nil
	})
	return stack[0]
}

// Domain returns the key interval spanning the smallest and largest value of
// every non-empty set referenced by n. ok is false when all of them are empty.
func Domain[T scalar.Value](n *expr.Node[T], spans Spanner) (lo, hi uint64, ok bool) {
	for _, h := range expr.Handles(n) {
		slo, shi, sok := spans.Span(h)
		if !sok {
			continue
		}
		if !ok {
			lo, hi, ok = slo, shi, true
			continue
		}
		lo, hi = min(lo, slo), max(hi, shi)
	}
	return lo, hi, ok
}

// Split divides [lo, hi] into min(k, hi-lo+1) contiguous intervals of equal
// width; the last one absorbs the remainder. k < 1 is treated as 1.
func Split(lo, hi uint64, k int) []Interval {
	if k < 1 {
		k = 1
	}
	if lo > hi {
		return nil
	}
	if k == 1 {
		return []Interval{{lo, hi}}
	}

	// width = hi-lo+1 may be 2^64.
	width, carry := bits.Add64(hi-lo, 1, 0)
	n := uint64(k)
	if carry == 0 && width < n {
		n = width
	}
	step, _ := bits.Div64(carry, width, n)

	out := make([]Interval, n)
	start := lo
	for i := range out {
		end := start + step - 1
		if uint64(i) == n-1 {
			end = hi
		}
		out[i] = Interval{start, end}
		start = end + 1
	}
	return out
}

// Restrict returns a copy of root in which every leaf is intersected with
// [lo, hi]. Leaves that no longer select anything are marked empty.
func Restrict(root *Node, lo, hi uint64) *Node {
	type frame struct {
		node     *Node
		expanded bool
	}
	var results []*Node
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.node.Op.IsCombinator() && !top.expanded {
			top.expanded = true
			stack = append(stack, frame{node: top.node.Right}, frame{node: top.node.Left})
			continue
		}
		n := top.node
		stack = stack[:len(stack)-1]

		out := &Node{Op: n.Op, Handle: n.Handle}
		if n.Op.IsCombinator() {
			out.Left, out.Right = results[len(results)-2], results[len(results)-1]
			results = results[:len(results)-2]
		} else {
			out.Lo, out.Hi = max(n.Lo, lo), min(n.Hi, hi)
			if n.Empty() || out.Lo > out.Hi {
				out.Lo, out.Hi = 1, 0
			}
		}
		results = append(results, out)
	}
	return results[0]
}

// Plan compiles n and splits its domain into at most k chunks. ok is false
// when the domain is empty.
func Plan[T scalar.Value](n *expr.Node[T], spans Spanner, k int) ([]Chunk, bool) {
	lo, hi, ok := Domain(n, spans)
	if !ok {
		return nil, false
	}
	root := Compile(n)
	intervals := Split(lo, hi, k)
	chunks := make([]Chunk, len(intervals))
	for i, iv := range intervals {
		chunks[i] = Chunk{Index: i, Lo: iv.Lo, Hi: iv.Hi, Root: Restrict(root, iv.Lo, iv.Hi)}
	}
	return chunks, true
}
