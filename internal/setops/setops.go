// Package setops implements merge kernels over sorted, duplicate-free slices.
//
// Every function appends to dst and returns the extended slice, in the style
// of append; passing dst[:0] reuses its storage. Inputs must be strictly
// increasing; outputs are strictly increasing.
package setops

import (
	"cmp"
	"slices"
)

// gallopRatio is the size ratio above which Intersect switches from a linear
// merge to exponential search of the larger input.
const gallopRatio = 32

// Intersect appends the values present in both a and b to dst.
func Intersect[T cmp.Ordered](dst, a, b []T) []T {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return dst
	}
	if len(b)/len(a) >= gallopRatio {
		return gallopIntersect(dst, a, b)
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case b[j] < a[i]:
			j++
		default:
			dst = append(dst, a[i])
			i++
			j++
		}
	}
	return dst
}

func gallopIntersect[T cmp.Ordered](dst, small, large []T) []T {
	for _, v := range small {
		j, found := gallop(large, v)
		if found {
			dst = append(dst, v)
			j++
		}
		large = large[j:]
		if len(large) == 0 {
			break
		}
	}
	return dst
}

// gallop returns the position of the first element of s that is >= v,
// probing exponentially from the front before binary searching.
func gallop[T cmp.Ordered](s []T, v T) (int, bool) {
	hi := 1
	for hi < len(s) && s[hi-1] < v {
		hi *= 2
	}
	lo := hi / 2
	hi = min(hi, len(s))
	j, found := slices.BinarySearch(s[lo:hi], v)
	return lo + j, found
}

// Union appends the values present in a or b to dst.
func Union[T cmp.Ordered](dst, a, b []T) []T {
	dst = slices.Grow(dst, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			dst = append(dst, a[i])
			i++
		case b[j] < a[i]:
			dst = append(dst, b[j])
			j++
		default:
			dst = append(dst, a[i])
			i++
			j++
		}
	}
	dst = append(dst, a[i:]...)
	return append(dst, b[j:]...)
}

// Difference appends the values of a that are absent from b to dst.
func Difference[T cmp.Ordered](dst, a, b []T) []T {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			dst = append(dst, a[i])
			i++
		case b[j] < a[i]:
			j++
		default:
			i++
			j++
		}
	}
	return append(dst, a[i:]...)
}

// Intersects reports whether a and b share at least one value.
func Intersects[T cmp.Ordered](a, b []T) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 || a[len(a)-1] < b[0] || b[len(b)-1] < a[0] {
		return false
	}
	for _, v := range a {
		j, found := gallop(b, v)
		if found {
			return true
		}
		b = b[j:]
		if len(b) == 0 {
			return false
		}
	}
	return false
}

// IsStrictlySorted reports whether s is strictly increasing.
func IsStrictlySorted[T cmp.Ordered](s []T) bool {
	for i := 1; i < len(s); i++ {
		if !(s[i-1] < s[i]) {
			return false
		}
	}
	return true
}

// MaxIntersect returns the largest possible output length of Intersect.
func MaxIntersect(a, b int) int { return min(a, b) }

// MaxUnion returns len(a)+len(b).
func MaxUnion(a, b int) int { return a + b }

// MaxDifference returns len(a).
func MaxDifference(a, _ int) int { return a }
