// Package merge concatenates the partial results of a partitioned query.
package merge

import (
	"cmp"
	"errors"
	"fmt"
)

// ErrInconsistent is returned when partial results violate the ordering
// contract between chunks.
var ErrInconsistent = errors.New("merge: inconsistent partial results")

// Concat joins partials in chunk order. Each partial must be strictly
// increasing and begin above the last value of the partials before it; the
// values are never re-sorted or de-duplicated.
func Concat[T cmp.Ordered](partials [][]T) ([]T, error) {
	total := 0
	for _, p := range partials {
		total += len(p)
	}
	out := make([]T, 0, total)
	for i, p := range partials {
		for j, v := range p {
			if len(out) > 0 && !(out[len(out)-1] < v) {
				return nil, fmt.Errorf("%w: chunk %d position %d is not above its predecessor", ErrInconsistent, i, j)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
