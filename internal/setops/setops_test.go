package setops

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernels(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []int64
		and, or   []int64
		diff      []int64
		intersect bool
	}{
		{"both empty", nil, nil, nil, nil, nil, false},
		{"left empty", nil, []int64{1, 2}, nil, []int64{1, 2}, nil, false},
		{"right empty", []int64{1, 2}, nil, nil, []int64{1, 2}, []int64{1, 2}, false},
		{"disjoint", []int64{1, 3, 5}, []int64{2, 4, 6}, nil, []int64{1, 2, 3, 4, 5, 6}, []int64{1, 3, 5}, false},
		{"overlap", []int64{-3, 0, 4, 9}, []int64{0, 1, 9, 12}, []int64{0, 9}, []int64{-3, 0, 1, 4, 9, 12}, []int64{-3, 4}, true},
		{"equal", []int64{1, 2, 3}, []int64{1, 2, 3}, []int64{1, 2, 3}, []int64{1, 2, 3}, nil, true},
		{"subset", []int64{2}, []int64{1, 2, 3}, []int64{2}, []int64{1, 2, 3}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.and, Intersect(nil, tt.a, tt.b))
			assert.Equal(t, tt.and, Intersect(nil, tt.b, tt.a))
			assert.Equal(t, tt.or, nilIfEmpty(Union(nil, tt.a, tt.b)))
			assert.Equal(t, tt.diff, Difference(nil, tt.a, tt.b))
			assert.Equal(t, tt.intersect, Intersects(tt.a, tt.b))
			assert.Equal(t, tt.intersect, Intersects(tt.b, tt.a))
		})
	}
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func randomSorted(rng *rand.Rand, n int, max uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = rng.Uint64N(max)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func naiveIntersect(a, b []uint64) []uint64 {
	var out []uint64
	for _, v := range a {
		if _, ok := slices.BinarySearch(b, v); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestIntersect_Gallop(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		small := randomSorted(rng, 1+rng.IntN(20), 1<<20)
		large := randomSorted(rng, 5000, 1<<20)

		want := naiveIntersect(small, large)
		assert.Equal(t, want, Intersect(nil, small, large))
		assert.Equal(t, want, Intersect(nil, large, small))
		assert.Equal(t, len(want) > 0, Intersects(small, large))
	}
}

func TestAppendReusesDst(t *testing.T) {
	dst := make([]int32, 0, 16)
	out := Union(dst, []int32{1, 3}, []int32{2})
	assert.Equal(t, []int32{1, 2, 3}, out)
	assert.Equal(t, &dst[:1][0], &out[0])
}

func TestIsStrictlySorted(t *testing.T) {
	assert.True(t, IsStrictlySorted[int]([]int{}))
	assert.True(t, IsStrictlySorted([]float64{-1, 0, 0.5}))
	assert.False(t, IsStrictlySorted([]uint32{1, 1}))
	assert.False(t, IsStrictlySorted([]int64{2, 1}))
}

func TestGallop(t *testing.T) {
	s := []int{1, 3, 5, 7, 9, 11, 13}
	for v, want := range map[int]int{0: 0, 1: 0, 2: 1, 13: 6, 14: 7, 8: 4} {
		got, _ := gallop(s, v)
		assert.Equal(t, want, got, "v=%d", v)
	}
	got, found := gallop([]int(nil), 3)
	assert.Zero(t, got)
	assert.False(t, found)
}
