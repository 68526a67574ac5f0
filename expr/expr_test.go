package expr

import (
	"errors"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/hupe1980/scalareval/scalar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handles map[Handle]bool

func (h handles) Has(x Handle) bool { return h[x] }

func TestValidate(t *testing.T) {
	open := handles{0: true, 1: true, 2: true}

	shared := Leaf[int64](1)
	cyclic := Union(Leaf[int64](0), Leaf[int64](1))
	cyclic.Right = cyclic

	tests := []struct {
		name string
		node *Node[int64]
		path string
	}{
		{"nil root", nil, "root"},
		{"nil operand", Intersect(Leaf[int64](0), nil), "root.right"},
		{"unknown handle", Union(Leaf[int64](0), Leaf[int64](9)), "root.right"},
		{"shared subtree", Intersect(shared, Union(Leaf[int64](2), shared)), "root.right.right"},
		{"cycle", cyclic, "root.right"},
		{"inverted range", Range[int64](0, 10, 5, Inclusive), "root"},
		{"unknown op", &Node[int64]{Op: 42}, "root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node, open)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.path, me.Path)
		})
	}

	ok := Difference(Union(Leaf[int64](0), Range[int64](1, 5, 5, Inclusive)), Leaf[int64](2))
	assert.NoError(t, Validate(ok, open))
}

func TestValidate_NaNBounds(t *testing.T) {
	n := Range(0, math.NaN(), 1, Inclusive)
	err := Validate(n, handles{0: true})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKeyInterval(t *testing.T) {
	k := scalar.Key[int32]

	lo, hi, ok := Range[int32](0, -5, 5, Inclusive).KeyInterval()
	require.True(t, ok)
	assert.Equal(t, k(-5), lo)
	assert.Equal(t, k(5), hi)

	lo, hi, ok = Range[int32](0, -5, 5, Exclusive).KeyInterval()
	require.True(t, ok)
	assert.Equal(t, k(-4), lo)
	assert.Equal(t, k(4), hi)

	_, _, ok = Range[int32](0, 5, 5, HalfOpen).KeyInterval()
	assert.False(t, ok)

	_, _, ok = Range[uint64](0, 0, 0, Bounds{LowerInclusive: true}).KeyInterval()
	assert.False(t, ok)

	_, _, ok = Range[uint64](0, math.MaxUint64, math.MaxUint64, Bounds{UpperInclusive: true}).KeyInterval()
	assert.False(t, ok)

	lo, hi, ok = Range(0, math.Copysign(0, -1), 0, Inclusive).KeyInterval()
	require.True(t, ok)
	assert.Equal(t, lo, hi)

	lo, hi, ok = Leaf[uint32](0).KeyInterval()
	require.True(t, ok)
	assert.Equal(t, uint64(0), lo)
	assert.Equal(t, uint64(math.MaxUint32), hi)
}

func TestWalks(t *testing.T) {
	n := Difference(
		Union(Leaf[int32](3), Range[int32](1, 0, 10, HalfOpen)),
		Intersect(Leaf[int32](3), Leaf[int32](0)),
	)

	var order []Op
	require.NoError(t, PostOrder(n, func(node *Node[int32]) error {
		order = append(order, node.Op)
		return nil
	}))
	assert.Equal(t, []Op{OpLeaf, OpRange, OpUnion, OpLeaf, OpLeaf, OpIntersect, OpDifference}, order)

	leaves := Leaves(n)
	require.Len(t, leaves, 4)
	assert.Equal(t, Handle(3), leaves[0].Handle)
	assert.Equal(t, Handle(0), leaves[3].Handle)

	assert.Equal(t, []Handle{0, 1, 3}, Handles(n))
	assert.Equal(t, 3, Depth(n))
	assert.Equal(t, 7, Count(n))
	assert.Equal(t, 0, Depth[int32](nil))
}

func TestPostOrder_StopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := PostOrder(Union(Leaf[int64](0), Leaf[int64](1)), func(*Node[int64]) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDeepTree(t *testing.T) {
	const depth = 100_000
	n := Leaf[uint64](0)
	for i := 1; i < depth; i++ {
		n = Union(n, Leaf[uint64](Handle(i%4)))
	}
	assert.Equal(t, depth, Depth(n))
	assert.Len(t, Leaves(n), depth)
	assert.NoError(t, Validate(n, handles{0: true, 1: true, 2: true, 3: true}))
}

func TestValidate_DeepTreeLinear(t *testing.T) {
	const depth = 50_000
	n := Leaf[int64](0)
	for i := 1; i < depth; i++ {
		n = Union(n, Leaf[int64](0))
	}
	r := handles{0: true}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	require.NoError(t, Validate(n, r))
	runtime.ReadMemStats(&after)

	// Quadratic path building needs gigabytes at this depth.
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func TestValidate_DeepErrorPath(t *testing.T) {
	const depth = 1_000
	n := Range[int64](0, 5, 1, Inclusive)
	for i := 1; i < depth; i++ {
		n = Intersect(Leaf[int64](0), n)
	}

	err := Validate(n, handles{0: true})
	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "root"+strings.Repeat(".right", depth-1), me.Path)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want *Node[float64]
	}{
		{"3", Leaf[float64](3)},
		{"#3", Leaf[float64](3)},
		{"and(#0, 1)", Intersect(Leaf[float64](0), Leaf[float64](1))},
		{"OR( #0 , #1 )", Union(Leaf[float64](0), Leaf[float64](1))},
		{"diff(#0, range(#2, -1.5, 2))", Difference(Leaf[float64](0), Range[float64](2, -1.5, 2, Inclusive))},
		{"range(#1, [0, 10))", Range[float64](1, 0, 10, HalfOpen)},
		{"range(1, (0, 10])", Range[float64](1, 0, 10, Bounds{UpperInclusive: true})},
		{"range(#1, (-Inf, +Inf))", Range(1, math.Inf(-1), math.Inf(1), Exclusive)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse[float64](tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"and(#0)",
		"and(#0, #1",
		"xor(#0, #1)",
		"#-1",
		"range(#0, [1, 2)",
		"range(#0, [1, 2})",
		"#0 #1",
		"range(#0, [a, 2])",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse[int32](in)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParse_DepthLimit(t *testing.T) {
	s := "#0"
	for range MaxParseDepth + 1 {
		s = "or(" + s + ", #1)"
	}
	_, err := Parse[int64](s)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestString_RoundTrip(t *testing.T) {
	n := Difference(
		Union(Leaf[int64](0), Range[int64](1, -10, 20, HalfOpen)),
		Intersect(Range[int64](2, math.MinInt64, math.MaxInt64, Exclusive), Leaf[int64](3)),
	)
	s := n.String()
	assert.Equal(t, "diff(or(#0, range(#1, [-10, 20))), and(range(#2, (-9223372036854775808, 9223372036854775807)), #3))", s)

	back, err := Parse[int64](s)
	require.NoError(t, err)
	assert.Equal(t, n, back)
}
