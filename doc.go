// Package scalareval evaluates set expressions over large collections of
// immutable, sorted scalar sets.
//
// Sets are opened into a setview.Catalog, usually memory-mapped from set
// files so that the working set may exceed RAM. An Engine evaluates
// expressions built with the expr package against the catalog:
//
//	cat := setview.NewCatalog[int64]()
//	handles, _ := cat.OpenFile("sets.sset")
//
//	eng, _ := scalareval.New(cat, scalareval.WithWorkers(8))
//	defer eng.Close()
//
//	q := expr.Difference(
//	    expr.Intersect(expr.Leaf[int64](handles[0]), expr.Leaf[int64](handles[1])),
//	    expr.Range[int64](handles[2], 0, 100, expr.HalfOpen),
//	)
//	res, _ := eng.Evaluate(ctx, q)
//
// # Execution
//
// Evaluate validates the expression, computes the key domain spanned by the
// referenced sets, splits it into disjoint chunks and evaluates every chunk
// on the engine's backend. Partial results are concatenated in chunk order;
// the result is strictly increasing and identical for every backend and
// chunk count.
//
// Two backends exist:
//
//   - BackendCPU runs chunks on a bounded worker pool shared by all queries
//     of the engine.
//   - BackendGPU runs chunks with the kernels of a gpu.Device. The device is
//     process-wide: open it once with gpu.Open and pass it with WithDevice.
//
// A query never mixes backends. WithCPUFallback lets New fall back to the CPU
// when the GPU backend is unavailable.
//
// # Floating point
//
// NaN is never stored in a set and never matches. Negative zero is stored
// as positive zero; the two are one value.
//
// # Errors
//
// Errors are matched with errors.Is against ErrMalformedExpression,
// ErrBackendUnavailable, ErrDeviceExecutionFailed, ErrResourceExhausted,
// ErrInconsistentPartialResults and ErrClosed. The underlying cause stays
// matchable as well.
package scalareval
