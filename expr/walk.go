package expr

import (
	"slices"

	"github.com/hupe1980/scalareval/scalar"
)

// PostOrder calls fn for every node of a validated tree, children before
// parents and left before right. It stops at the first error.
func PostOrder[T scalar.Value](n *Node[T], fn func(*Node[T]) error) error {
	if n == nil {
		return nil
	}
	type frame struct {
		node     *Node[T]
		expanded bool
	}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.node.Op.IsCombinator() && !top.expanded {
			top.expanded = true
			stack = append(stack, frame{node: top.node.Right}, frame{node: top.node.Left})
			continue
		}
		node := top.node
		stack = stack[:len(stack)-1]
		if err := fn(node); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns the Leaf and Range nodes of a validated tree, left to right.
func Leaves[T scalar.Value](n *Node[T]) []*Node[T] {
	var out []*Node[T]
	_ = PostOrder(n, func(node *Node[T]) error {
		if !node.Op.IsCombinator() {
			out = append(out, node)
		}
		return nil
	})
	return out
}

// Handles returns the distinct handles referenced by a validated tree in
// increasing order.
func Handles[T scalar.Value](n *Node[T]) []Handle {
	var out []Handle
	for _, leaf := range Leaves(n) {
		out = append(out, leaf.Handle)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Depth returns the number of nodes on the longest root-to-leaf path of a
// validated tree; a nil tree has depth 0.
func Depth[T scalar.Value](n *Node[T]) int {
	if n == nil {
		return 0
	}
	type frame struct {
		node  *Node[T]
		depth int
	}
	deepest := 0
	stack := []frame{{node: n, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		deepest = max(deepest, f.depth)
		if f.node.Op.IsCombinator() {
			stack = append(stack, frame{f.node.Left, f.depth + 1}, frame{f.node.Right, f.depth + 1})
		}
	}
	return deepest
}

// Count returns the number of nodes in a validated tree.
func Count[T scalar.Value](n *Node[T]) int {
	c := 0
	_ = PostOrder(n, func(*Node[T]) error {
		c++
		return nil
	})
	return c
}
