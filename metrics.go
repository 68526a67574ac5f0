package scalareval

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see the metric package for a ready-made implementation.
type MetricsCollector interface {
	// RecordEvaluate is called after each Evaluate call.
	// chunks is the number of chunks the query was split into, duration is
	// the total time taken, err is nil if successful.
	RecordEvaluate(backend string, chunks int, duration time.Duration, err error)

	// RecordChunk is called once per evaluated chunk with its wall time.
	RecordChunk(backend string, duration time.Duration)

	// RecordMatchAny is called after each MatchAny call.
	// sets is the number of sets checked and matches the number that matched.
	RecordMatchAny(backend string, sets, matches int, duration time.Duration, err error)

	// RecordFallback is called when an engine falls back to another backend.
	RecordFallback(from, to string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEvaluate(string, int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordChunk(string, time.Duration)                     {}
func (NoopMetricsCollector) RecordMatchAny(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFallback(string, string)                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EvaluateCount      atomic.Int64
	EvaluateErrors     atomic.Int64
	EvaluateTotalNanos atomic.Int64
	ChunkCount         atomic.Int64
	ChunkTotalNanos    atomic.Int64
	MatchAnyCount      atomic.Int64
	MatchAnyErrors     atomic.Int64
	MatchAnyTotalNanos atomic.Int64
	SetsChecked        atomic.Int64
	SetsMatched        atomic.Int64
	FallbackCount      atomic.Int64
}

// RecordEvaluate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEvaluate(_ string, _ int, duration time.Duration, err error) {
	b.EvaluateCount.Add(1)
	b.EvaluateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EvaluateErrors.Add(1)
	}
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(_ string, duration time.Duration) {
	b.ChunkCount.Add(1)
	b.ChunkTotalNanos.Add(duration.Nanoseconds())
}

// RecordMatchAny implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatchAny(_ string, sets, matches int, duration time.Duration, err error) {
	b.MatchAnyCount.Add(1)
	b.MatchAnyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MatchAnyErrors.Add(1)
		return
	}
	b.SetsChecked.Add(int64(sets))
	b.SetsMatched.Add(int64(matches))
}

// RecordFallback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFallback(string, string) {
	b.FallbackCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EvaluateCount:    b.EvaluateCount.Load(),
		EvaluateErrors:   b.EvaluateErrors.Load(),
		EvaluateAvgNanos: avg(b.EvaluateTotalNanos.Load(), b.EvaluateCount.Load()),
		ChunkCount:       b.ChunkCount.Load(),
		ChunkAvgNanos:    avg(b.ChunkTotalNanos.Load(), b.ChunkCount.Load()),
		MatchAnyCount:    b.MatchAnyCount.Load(),
		MatchAnyErrors:   b.MatchAnyErrors.Load(),
		MatchAnyAvgNanos: avg(b.MatchAnyTotalNanos.Load(), b.MatchAnyCount.Load()),
		SetsChecked:      b.SetsChecked.Load(),
		SetsMatched:      b.SetsMatched.Load(),
		FallbackCount:    b.FallbackCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EvaluateCount    int64
	EvaluateErrors   int64
	EvaluateAvgNanos int64
	ChunkCount       int64
	ChunkAvgNanos    int64
	MatchAnyCount    int64
	MatchAnyErrors   int64
	MatchAnyAvgNanos int64
	SetsChecked      int64
	SetsMatched      int64
	FallbackCount    int64
}
