package scalareval

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scalareval/scalar"
)

// Stats describes how a query was executed.
type Stats struct {
	// Backend is the backend that ran the query ("cpu" or "gpu").
	Backend string `json:"backend"`
	// Fallback is set when the engine runs on the CPU because the GPU
	// backend was unavailable at construction.
	Fallback bool `json:"fallback,omitempty"`
	// Chunks is the number of chunks the domain was split into.
	Chunks int `json:"chunks"`
	// EmptyDomain is set when every referenced set is empty; the result is
	// empty and no chunk was scheduled.
	EmptyDomain bool `json:"empty_domain,omitempty"`
	// BackendTime is the wall time spent in the backend.
	BackendTime time.Duration `json:"backend_time"`
	// TotalTime is the wall time of the whole call.
	TotalTime time.Duration `json:"total_time"`
	// ChunkTimes holds the wall time of every chunk, by chunk index.
	ChunkTimes []time.Duration `json:"chunk_times,omitempty"`
	// ReservedBytes is the memory reserved for the query's buffers.
	ReservedBytes int64 `json:"reserved_bytes"`
}

// Result is the outcome of Evaluate.
type Result[T scalar.Value] struct {
	// Values is strictly increasing and duplicate-free.
	Values []T   `json:"values"`
	Stats  Stats `json:"stats"`
}

// Len returns the number of values.
func (r *Result[T]) Len() int { return len(r.Values) }

// MatchResult is the outcome of MatchAny.
type MatchResult struct {
	// Matches holds the handles of the sets that share a value with the probe.
	Matches *roaring.Bitmap
	// Count is the number of matching sets.
	Count int
	Stats Stats
}

// Handles returns the matching handles in increasing order.
func (r *MatchResult) Handles() []uint32 {
	return r.Matches.ToArray()
}
