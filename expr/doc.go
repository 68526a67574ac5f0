// Package expr defines the query expression tree evaluated by the engine.
//
// An expression is a binary tree whose leaves reference sets by handle and
// whose inner nodes combine the sets of their children:
//
//	Leaf(h)                    every value of set h
//	Range(h, lo, hi, bounds)   the values of set h between lo and hi
//	Intersect(l, r)            values in both l and r
//	Union(l, r)                values in l or r
//	Difference(l, r)           values in l but not in r
//
// Expressions are plain data. Validate checks the structural invariants
// before anything is scheduled, and every traversal in this package uses an
// explicit stack so that deep trees never exhaust the goroutine stack.
//
// The text form produced by String is accepted by Parse:
//
//	diff(or(#0, range(#1, [10, 20))), #2)
package expr
