package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Int64Range returns a pseudo-random number in [lo, hi).
func (r *RNG) Int64Range(lo, hi int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.int64RangeLocked(lo, hi)
}

func (r *RNG) int64RangeLocked(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + r.rand.Int63n(hi-lo)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) is proportional to 1/k^s; s=1.5 gives a heavy tail.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// scale maps an integer draw onto T. Float kinds get a quarter step so
// results exercise fractional values.
func scale[T scalar.Value](x int64) T {
	if scalar.KindOf[T]().IsFloat() {
		return T(x) / 4
	}
	return T(x)
}

// SortedSet draws n values uniformly from [lo, hi) and returns them as a
// normalized set. Duplicates collapse, so the result may be shorter than n.
// Unsigned kinds clamp lo to zero.
func SortedSet[T scalar.Value](r *RNG, n int, lo, hi int64) []T {
	if k := scalar.KindOf[T](); k == scalar.KindUint32 || k == scalar.KindUint64 {
		lo = max(lo, 0)
		hi = max(hi, lo)
	}

	r.mu.Lock()
	out := make([]T, n)
	for i := range out {
		out[i] = scale[T](r.int64RangeLocked(lo, hi))
	}
	r.mu.Unlock()

	return setview.Normalize(out)
}

// ZipfSet draws n values from a Zipfian distribution over [0, domain).
// Small values dominate, which produces sets that are dense near zero and
// sparse in the tail.
func ZipfSet[T scalar.Value](r *RNG, n, domain int, s float64) []T {
	r.mu.Lock()
	out := make([]T, n)
	for i := range out {
		out[i] = scale[T](int64(r.zipfLocked(domain, s)))
	}
	r.mu.Unlock()

	return setview.Normalize(out)
}

// OverlappingSets generates count sets of about n values each. A share of
// each set given by overlap (0..1) is drawn from a pool common to all sets,
// the rest from the full range [lo, hi).
func OverlappingSets[T scalar.Value](r *RNG, count, n int, lo, hi int64, overlap float64) [][]T {
	pool := SortedSet[T](r, n, lo, hi)

	sets := make([][]T, count)
	for i := range sets {
		r.mu.Lock()
		vals := make([]T, 0, n)
		for range n {
			if len(pool) > 0 && r.rand.Float64() < overlap {
				vals = append(vals, pool[r.rand.Intn(len(pool))])
				continue
			}
			vals = append(vals, scale[T](r.int64RangeLocked(lo, hi)))
		}
		r.mu.Unlock()
		sets[i] = setview.Normalize(vals)
	}
	return sets
}

// DenseSparsePair returns a dense run of n consecutive values starting at
// zero and a sparse set of about n/ratio values spread over ten times the
// dense range. The size skew drives the galloping intersection path.
func DenseSparsePair[T scalar.Value](r *RNG, n, ratio int) (dense, sparse []T) {
	dense = make([]T, n)
	for i := range dense {
		dense[i] = scale[T](int64(i))
	}
	sparse = SortedSet[T](r, max(n/max(ratio, 1), 1), 0, int64(n)*10)
	return dense, sparse
}

// Reference evaluates n by brute force over key sets. It is the ground
// truth for engine tests and assumes n is valid for the given sets.
func Reference[T scalar.Value](n *expr.Node[T], sets map[expr.Handle][]T) []T {
	keys := referenceKeys(n, sets)
	out := make([]uint64, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return scalar.AppendValues[T](nil, out)
}

func referenceKeys[T scalar.Value](n *expr.Node[T], sets map[expr.Handle][]T) map[uint64]struct{} {
	switch n.Op {
	case expr.OpLeaf, expr.OpRange:
		lo, hi, ok := n.KeyInterval()
		out := make(map[uint64]struct{})
		if !ok {
			return out
		}
		for _, v := range sets[n.Handle] {
			if k := scalar.Key(v); k >= lo && k <= hi {
				out[k] = struct{}{}
			}
		}
		return out
	}

	l := referenceKeys(n.Left, sets)
	r := referenceKeys(n.Right, sets)
	out := make(map[uint64]struct{})
	switch n.Op {
	case expr.OpIntersect:
		for k := range l {
			if _, ok := r[k]; ok {
				out[k] = struct{}{}
			}
		}
	case expr.OpUnion:
		for k := range l {
			out[k] = struct{}{}
		}
		for k := range r {
			out[k] = struct{}{}
		}
	case expr.OpDifference:
		for k := range l {
			if _, ok := r[k]; !ok {
				out[k] = struct{}{}
			}
		}
	}
	return out
}
