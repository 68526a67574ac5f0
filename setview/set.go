package setview

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setfile"
)

// ErrNotSorted is returned by New for values that are not strictly increasing,
// contain NaN or contain negative zero.
var ErrNotSorted = errors.New("setview: values must be strictly increasing, canonical and NaN-free")

// Set is an immutable, sorted, duplicate-free sequence of scalars.
type Set[T scalar.Value] struct {
	values  []T
	buckets setfile.Buckets
}

// New wraps values without copying. The caller must not modify them afterwards.
func New[T scalar.Value](values []T) (*Set[T], error) {
	if err := checkValues(values); err != nil {
		return nil, err
	}
	return &Set[T]{values: values}, nil
}

// FromValues builds a Set from arbitrary values: NaN is dropped, negative zero
// is folded onto zero, and the rest is sorted and de-duplicated into a new slice.
func FromValues[T scalar.Value](values []T) *Set[T] {
	return &Set[T]{values: Normalize(values)}
}

// Normalize returns a sorted, duplicate-free, canonical, NaN-free copy of values.
func Normalize[T scalar.Value](values []T) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if scalar.IsNaN(v) {
			continue
		}
		out = append(out, scalar.Canonical(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func newIndexed[T scalar.Value](values []T, b setfile.Buckets) *Set[T] {
	return &Set[T]{values: values, buckets: b}
}

func checkValues[T scalar.Value](values []T) error {
	for i, v := range values {
		if scalar.IsNaN(v) || scalar.IsNegZero(v) {
			return fmt.Errorf("%w: position %d", ErrNotSorted, i)
		}
		if i > 0 && !(values[i-1] < v) {
			return fmt.Errorf("%w: position %d", ErrNotSorted, i)
		}
	}
	return nil
}

// Len returns the number of values.
func (s *Set[T]) Len() int { return len(s.values) }

// Values returns the borrowed values. Callers must not modify them.
func (s *Set[T]) Values() []T { return s.values }

// Min returns the smallest value.
func (s *Set[T]) Min() (T, bool) {
	if len(s.values) == 0 {
		var zero T
		return zero, false
	}
	return s.values[0], true
}

// Max returns the largest value.
func (s *Set[T]) Max() (T, bool) {
	if len(s.values) == 0 {
		var zero T
		return zero, false
	}
	return s.values[len(s.values)-1], true
}

// Span returns the order keys of the smallest and largest value.
func (s *Set[T]) Span() (lo, hi uint64, ok bool) {
	if len(s.values) == 0 {
		return 0, 0, false
	}
	return scalar.Key(s.values[0]), scalar.Key(s.values[len(s.values)-1]), true
}

// LowerBound returns the first position whose key is >= key.
func (s *Set[T]) LowerBound(key uint64) int {
	return setfile.LowerBound(s.values, s.buckets, key)
}

// UpperBound returns the first position whose key is > key.
func (s *Set[T]) UpperBound(key uint64) int {
	if key == math.MaxUint64 {
		return len(s.values)
	}
	return s.LowerBound(key + 1)
}

// KeyRange returns the borrowed values whose keys lie in the closed interval
// [lo, hi]. An empty slice is returned when lo > hi.
func (s *Set[T]) KeyRange(lo, hi uint64) []T {
	i, j := s.Bounds(lo, hi)
	return s.values[i:j]
}

// Bounds returns the position interval [i, j) of the values whose keys lie in
// the closed interval [lo, hi].
func (s *Set[T]) Bounds(lo, hi uint64) (i, j int) {
	if lo > hi {
		return 0, 0
	}
	i = s.LowerBound(lo)
	j = max(i, s.UpperBound(hi))
	return i, j
}

// Contains reports whether v is in the set. NaN is never contained.
func (s *Set[T]) Contains(v T) bool {
	if scalar.IsNaN(v) {
		return false
	}
	k := scalar.Key(v)
	i := s.LowerBound(k)
	return i < len(s.values) && scalar.Key(s.values[i]) == k
}
