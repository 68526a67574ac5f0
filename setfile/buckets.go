package setfile

import (
	"sort"

	"github.com/hupe1980/scalareval/scalar"
)

// DefaultBucketSize is the average number of values per bucket used by Writer.
const DefaultBucketSize = 32

// Buckets is the block index of one set. Bucket i covers the keys
// [MinKey + i*Width, MinKey + (i+1)*Width) and its values occupy positions
// [Starts[i], Starts[i+1]).
type Buckets struct {
	Starts []uint32
	MinKey uint64
	Width  uint64
}

// Count returns the number of buckets.
func (b Buckets) Count() int {
	if len(b.Starts) == 0 {
		return 0
	}
	return len(b.Starts) - 1
}

// BucketCount returns the bucket count used for a set of n values.
func BucketCount(n, bucketSize int) uint32 {
	if n == 0 {
		return 0
	}
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}
	return uint32(max(1, n/bucketSize))
}

// bucketGeometry derives the key width of buckets from the key span.
func bucketGeometry(minKey, maxKey uint64, buckets uint32) uint64 {
	return (maxKey-minKey)/uint64(buckets) + 1
}

// BuildBuckets computes the bucket index of sorted values.
func BuildBuckets[T scalar.Value](values []T, buckets uint32) Buckets {
	if len(values) == 0 || buckets == 0 {
		return Buckets{}
	}
	minKey := scalar.Key(values[0])
	width := bucketGeometry(minKey, scalar.Key(values[len(values)-1]), buckets)
	starts := make([]uint32, buckets+1)
	pos := 0
	for i := uint32(0); i < buckets; i++ {
		starts[i] = uint32(pos)
		limit := uint64(i+1) * width
		for pos < len(values) && (i == buckets-1 || scalar.Key(values[pos])-minKey < limit) {
			pos++
		}
	}
	starts[buckets] = uint32(len(values))
	return Buckets{Starts: starts, MinKey: minKey, Width: width}
}

// Window returns the position interval [lo, hi) that contains the lower bound
// of key. n is the number of values in the set.
func (b Buckets) Window(key uint64, n int) (lo, hi int) {
	if len(b.Starts) < 2 || b.Width == 0 {
		return 0, n
	}
	if key <= b.MinKey {
		return 0, 0
	}
	i := (key - b.MinKey) / b.Width
	if i >= uint64(len(b.Starts)-1) {
		return n, n
	}
	return int(b.Starts[i]), int(b.Starts[i+1])
}

// LowerBound returns the first position whose key is >= key.
func LowerBound[T scalar.Value](values []T, b Buckets, key uint64) int {
	lo, hi := b.Window(key, len(values))
	return lo + sort.Search(hi-lo, func(i int) bool {
		return scalar.Key(values[lo+i]) >= key
	})
}
