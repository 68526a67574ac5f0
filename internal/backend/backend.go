// Package backend implements the execution backends of the engine. The set
// of backends is closed: CPU and GPU are the only implementations of Backend.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/scalareval/internal/partition"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// Kind identifies a backend.
type Kind uint8

const (
	// KindCPU evaluates chunks on a bounded worker pool.
	KindCPU Kind = iota
	// KindGPU evaluates chunks with device kernels.
	KindGPU
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses "cpu" or "gpu".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "":
		return KindCPU, nil
	case "gpu":
		return KindGPU, nil
	default:
		return 0, fmt.Errorf("backend: unknown kind %q", s)
	}
}

// Sets resolves handles to sets. *setview.Catalog implements it.
type Sets[T scalar.Value] interface {
	Set(h setview.Handle) (*setview.Set[T], bool)
}

// Query is the unit of work handed to a backend.
type Query[T scalar.Value] struct {
	Chunks []partition.Chunk
	Sets   Sets[T]
	// Memory accounts every buffer the backend allocates. May be nil.
	Memory *resource.Reservation
}

// Output holds the partial results of a query, indexed by chunk.
type Output[T scalar.Value] struct {
	Partials [][]T
	Timings  []time.Duration
}

// Backend evaluates queries. Implementations are safe for concurrent use.
type Backend[T scalar.Value] interface {
	// Kind identifies the backend.
	Kind() Kind
	// Evaluate runs every chunk of q and returns the partial results in
	// chunk order. No partial result is returned with an error.
	Evaluate(ctx context.Context, q Query[T]) (*Output[T], error)
	// MatchAny reports for each set whether it contains a value of probe.
	// probe must be strictly increasing.
	MatchAny(ctx context.Context, sets []*setview.Set[T], probe []T, mem *resource.Reservation) (*bitset.BitSet, error)
	// Close releases the resources owned by the backend.
	Close() error

	sealed()
}

// UnknownSetError is returned when a chunk references a handle the query's
// set source cannot resolve.
type UnknownSetError struct {
	Handle setview.Handle
}

func (e *UnknownSetError) Error() string {
	return fmt.Sprintf("backend: set #%d is not open", e.Handle)
}

func reserve[T scalar.Value](mem *resource.Reservation, n int) error {
	return mem.Acquire(int64(n) * int64(scalar.SizeOf[T]()))
}
