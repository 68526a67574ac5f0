// Package testutil provides testing utilities for scalareval.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random sorted sets with controlled
// overlap and skew, and a brute-force reference evaluator for expressions.
//
// # Random Set Generation
//
//	rng := testutil.NewRNG(seed)
//	a := testutil.SortedSet[int64](rng, 1000, -1e6, 1e6)
//	b := testutil.ZipfSet[float64](rng, 1000, 1<<16, 1.5)
//
// # Ground Truth
//
//	want := testutil.Reference(node, map[expr.Handle][]int64{0: a, 1: b})
package testutil
