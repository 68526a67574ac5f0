package scalareval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/internal/backend"
	"github.com/hupe1980/scalareval/internal/merge"
	"github.com/hupe1980/scalareval/internal/partition"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// Engine evaluates expressions over the sets of one catalog on a single
// execution backend chosen at construction. It is safe for concurrent use.
type Engine[T scalar.Value] struct {
	catalog  *setview.Catalog[T]
	backend  backend.Backend[T]
	chunks   int
	fallback bool
	rc       *resource.Controller
	logger   *Logger
	metrics  MetricsCollector

	mu     sync.RWMutex
	closed bool
}

// New creates an engine over catalog.
//
// With WithBackend(BackendGPU) the engine needs a device (WithDevice). If the
// GPU backend cannot be created New returns ErrBackendUnavailable, unless
// WithCPUFallback(true) is set, in which case the engine runs on the CPU.
func New[T scalar.Value](catalog *setview.Catalog[T], optFns ...Option) (*Engine[T], error) {
	if catalog == nil {
		return nil, fmt.Errorf("scalareval: nil catalog")
	}
	o := applyOptions(optFns)

	rc := o.resources
	if rc == nil {
		rc = resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit})
	}

	e := &Engine[T]{
		catalog: catalog,
		rc:      rc,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}

	switch o.backend {
	case BackendGPU:
		g, err := backend.NewGPU[T](o.device)
		if err == nil {
			e.backend = g
			e.chunks = DefaultGPUChunks
			break
		}
		if !o.cpuFallback {
			return nil, translateError(err)
		}
		e.logger.LogFallback(context.Background(), BackendGPU.String(), BackendCPU.String(), err)
		e.metrics.RecordFallback(BackendGPU.String(), BackendCPU.String())
		e.fallback = true
		fallthrough
	case BackendCPU:
		c, err := backend.NewCPU[T](o.workers)
		if err != nil {
			return nil, err
		}
		e.backend = c
		e.chunks = c.Workers()
	default:
		return nil, fmt.Errorf("%w: unknown backend %s", ErrBackendUnavailable, o.backend)
	}

	if o.chunks > 0 {
		e.chunks = o.chunks
	}
	e.logger = e.logger.WithBackend(e.backend.Kind().String())
	return e, nil
}

// Backend returns the backend the engine runs on.
func (e *Engine[T]) Backend() BackendKind { return e.backend.Kind() }

// Chunks returns the number of chunks queries are split into.
func (e *Engine[T]) Chunks() int { return e.chunks }

// Catalog returns the catalog the engine evaluates against.
func (e *Engine[T]) Catalog() *setview.Catalog[T] { return e.catalog }

func (e *Engine[T]) stats() Stats {
	return Stats{Backend: e.backend.Kind().String(), Fallback: e.fallback}
}

// Evaluate validates n, splits its domain into chunks, runs every chunk on
// the engine's backend and merges the partial results in chunk order.
//
// The result does not depend on the backend or the chunk count. When every
// referenced set is empty the result is empty and Stats.EmptyDomain is set.
// Cancellation is honored between chunks; a cancelled call returns the
// context's error and no values.
func (e *Engine[T]) Evaluate(ctx context.Context, n *expr.Node[T]) (res *Result[T], err error) {
	start := time.Now()
	stats := e.stats()
	log := e.logger
	defer func() {
		stats.TotalTime = time.Since(start)
		if res != nil {
			res.Stats = stats
		}
		e.metrics.RecordEvaluate(stats.Backend, stats.Chunks, stats.TotalTime, err)
		results := 0
		if res != nil {
			results = res.Len()
		}
		log.LogEvaluate(ctx, results, stats.TotalTime, err)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	if err := expr.Validate(n, e.catalog); err != nil {
		return nil, translateError(err)
	}

	chunks, ok := partition.Plan(n, e.catalog, e.chunks)
	if !ok {
		stats.EmptyDomain = true
		return &Result[T]{}, nil
	}
	stats.Chunks = len(chunks)
	log = log.WithChunks(len(chunks))

	mem := e.rc.Reserve()
	defer mem.Release()

	backendStart := time.Now()
	out, err := e.backend.Evaluate(ctx, backend.Query[T]{Chunks: chunks, Sets: e.catalog, Memory: mem})
	stats.BackendTime = time.Since(backendStart)
	if err != nil {
		stats.ReservedBytes = mem.Held()
		return nil, translateError(err)
	}
	stats.ChunkTimes = out.Timings
	for _, d := range out.Timings {
		e.metrics.RecordChunk(stats.Backend, d)
	}

	total := 0
	for _, p := range out.Partials {
		total += len(p)
	}
	if err := mem.Acquire(int64(total) * int64(scalar.SizeOf[T]())); err != nil {
		stats.ReservedBytes = mem.Held()
		return nil, translateError(err)
	}
	stats.ReservedBytes = mem.Held()

	values, err := merge.Concat(out.Partials)
	if err != nil {
		return nil, translateError(err)
	}
	return &Result[T]{Values: values}, nil
}

// MatchAny reports which of the given sets contain at least one value of
// probe. An empty handles slice checks every set of the catalog. NaN probe
// values never match.
func (e *Engine[T]) MatchAny(ctx context.Context, probe []T, handles []setview.Handle) (res *MatchResult, err error) {
	start := time.Now()
	stats := e.stats()
	defer func() {
		stats.TotalTime = time.Since(start)
		matches := 0
		if res != nil {
			res.Stats = stats
			matches = res.Count
		}
		e.metrics.RecordMatchAny(stats.Backend, len(handles), matches, stats.TotalTime, err)
		e.logger.LogMatchAny(ctx, len(handles), len(probe), matches, stats.TotalTime, err)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	if len(handles) == 0 {
		handles = e.catalog.Handles()
	}
	sets := make([]*setview.Set[T], len(handles))
	for i, h := range handles {
		s, ok := e.catalog.Set(h)
		if !ok {
			return nil, fmt.Errorf("%w: unknown handle #%d", ErrMalformedExpression, h)
		}
		sets[i] = s
	}

	mem := e.rc.Reserve()
	defer mem.Release()
	if err := mem.Acquire(int64(len(probe)) * int64(scalar.SizeOf[T]())); err != nil {
		return nil, translateError(err)
	}
	normalized := setview.Normalize(probe)

	backendStart := time.Now()
	hits, err := e.backend.MatchAny(ctx, sets, normalized, mem)
	stats.BackendTime = time.Since(backendStart)
	stats.ReservedBytes = mem.Held()
	if err != nil {
		return nil, translateError(err)
	}

	bm := roaring.New()
	for i, ok := hits.NextSet(0); ok; i, ok = hits.NextSet(i + 1) {
		bm.Add(uint32(handles[i]))
	}
	return &MatchResult{Matches: bm, Count: int(bm.GetCardinality())}, nil
}

// Close releases the engine's worker pool. It waits for running queries.
// The catalog and any device stay open.
func (e *Engine[T]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.backend.Close()
}
