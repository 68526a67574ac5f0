package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/scalareval/scalar"
)

// ErrMalformed is the sentinel wrapped by every MalformedError.
var ErrMalformed = errors.New("expr: malformed expression")

// MalformedError describes the first structural problem found in a tree.
type MalformedError struct {
	// Path locates the offending node, e.g. "root.left.right".
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("expr: malformed expression at %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrMalformed.
func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Resolver reports which handles are open. *setview.Catalog implements it.
type Resolver interface {
	Has(h Handle) bool
}

// Validate checks that n is a finite tree of well-formed nodes whose handles
// are all open in r. It returns a *MalformedError describing the first
// problem found in depth-first order.
func Validate[T scalar.Value](n *Node[T], r Resolver) error {
	type frame struct {
		node *Node[T]
		step int
	}

	// steps[i] links a visited position to its parent; the path string is
	// only assembled for the error.
	var steps []pathStep
	malformed := func(step int, reason string) error {
		return &MalformedError{Path: buildPath(steps, step), Reason: reason}
	}

	seen := make(map[*Node[T]]struct{})
	steps = append(steps, pathStep{parent: -1})
	stack := []frame{{node: n, step: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node == nil {
			return malformed(f.step, "nil node")
		}
		if _, ok := seen[f.node]; ok {
			return malformed(f.step, "node is reachable more than once")
		}
		seen[f.node] = struct{}{}

		switch f.node.Op {
		case OpLeaf:
			if r != nil && !r.Has(f.node.Handle) {
				return malformed(f.step, fmt.Sprintf("unknown handle #%d", f.node.Handle))
			}
		case OpRange:
			if r != nil && !r.Has(f.node.Handle) {
				return malformed(f.step, fmt.Sprintf("unknown handle #%d", f.node.Handle))
			}
			if err := checkBounds(f.node); err != "" {
				return malformed(f.step, err)
			}
		case OpIntersect, OpUnion, OpDifference:
			steps = append(steps,
				pathStep{parent: f.step, right: true},
				pathStep{parent: f.step},
			)
			stack = append(stack,
				frame{node: f.node.Right, step: len(steps) - 2},
				frame{node: f.node.Left, step: len(steps) - 1},
			)
		default:
			return malformed(f.step, fmt.Sprintf("unknown operator %d", f.node.Op))
		}
	}
	return nil
}

type pathStep struct {
	parent int
	right  bool
}

func buildPath(steps []pathStep, i int) string {
	var dirs []bool
	for ; steps[i].parent >= 0; i = steps[i].parent {
		dirs = append(dirs, steps[i].right)
	}
	var b strings.Builder
	b.Grow(len("root") + len(".right")*len(dirs))
	b.WriteString("root")
	for j := len(dirs) - 1; j >= 0; j-- {
		if dirs[j] {
			b.WriteString(".right")
		} else {
			b.WriteString(".left")
		}
	}
	return b.String()
}

func checkBounds[T scalar.Value](n *Node[T]) string {
	if scalar.IsNaN(n.Lower) || scalar.IsNaN(n.Upper) {
		return "NaN range bound"
	}
	if n.Upper < n.Lower {
		return fmt.Sprintf("lower bound %s exceeds upper bound %s", scalar.Format(n.Lower), scalar.Format(n.Upper))
	}
	return ""
}
