package backend

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/panjf2000/ants/v2"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/internal/partition"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/internal/setops"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// matchBatch is the number of sets one MatchAny task checks. It is a
// multiple of 64 so tasks never share a bitset word.
const matchBatch = 256

// CPU evaluates chunks on a fixed-size worker pool shared by all queries.
type CPU[T scalar.Value] struct {
	pool *ants.Pool
}

// NewCPU creates a CPU backend with the given number of workers; workers < 1
// selects GOMAXPROCS.
func NewCPU[T scalar.Value](workers int) (*CPU[T], error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("backend: create worker pool: %w", err)
	}
	return &CPU[T]{pool: pool}, nil
}

func (*CPU[T]) sealed() {}

// Kind returns KindCPU.
func (*CPU[T]) Kind() Kind { return KindCPU }

// Workers returns the pool capacity.
func (c *CPU[T]) Workers() int { return c.pool.Cap() }

// Close releases the worker pool.
func (c *CPU[T]) Close() error {
	c.pool.Release()
	return nil
}

// firstError records the first error reported by concurrent tasks.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// run submits fn(i) for i in [0, n) and waits for every submitted task.
// Tasks that have not started when ctx is done are skipped.
func (c *CPU[T]) run(ctx context.Context, n int, fn func(i int) error) error {
	var (
		wg    sync.WaitGroup
		first firstError
	)
	for i := range n {
		if ctx.Err() != nil || first.get() != nil {
			break
		}
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					first.set(fmt.Errorf("backend: task %d panicked: %v", i, r))
				}
			}()
			if ctx.Err() != nil {
				return
			}
			if err := fn(i); err != nil {
				first.set(err)
			}
		})
		if err != nil {
			wg.Done()
			first.set(fmt.Errorf("backend: submit task %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return first.get()
}

// Evaluate runs every chunk on the pool.
func (c *CPU[T]) Evaluate(ctx context.Context, q Query[T]) (*Output[T], error) {
	out := &Output[T]{
		Partials: make([][]T, len(q.Chunks)),
		Timings:  make([]time.Duration, len(q.Chunks)),
	}
	err := c.run(ctx, len(q.Chunks), func(i int) error {
		start := time.Now()
		r, err := evalChunk(q.Chunks[i].Root, q.Sets, q.Memory)
		if err != nil {
			return err
		}
		out.Partials[i] = r
		out.Timings[i] = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// evalChunk evaluates a restricted tree bottom-up with an explicit stack.
// Leaf results borrow the set's memory; combinator results are new buffers
// reserved against mem.
func evalChunk[T scalar.Value](root *partition.Node, sets Sets[T], mem *resource.Reservation) ([]T, error) {
	type frame struct {
		node     *partition.Node
		expanded bool
	}
	var (
		results [][]T
		stack   = []frame{{node: root}}
	)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.node.Op.IsCombinator() && !top.expanded {
			top.expanded = true
			stack = append(stack, frame{node: top.node.Right}, frame{node: top.node.Left})
			continue
		}
		n := top.node
		stack = stack[:len(stack)-1]

		if !n.Op.IsCombinator() {
			s, ok := sets.Set(n.Handle)
			if !ok {
				return nil, &UnknownSetError{Handle: n.Handle}
			}
			var r []T
			if !n.Empty() {
				r = s.KeyRange(n.Lo, n.Hi)
			}
			results = append(results, r)
			continue
		}

		a, b := results[len(results)-2], results[len(results)-1]
		results = results[:len(results)-2]
		r, err := combine(n.Op, a, b, mem)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results[0], nil
}

func combine[T scalar.Value](op expr.Op, a, b []T, mem *resource.Reservation) ([]T, error) {
	switch op {
	case expr.OpIntersect:
		if len(a) == 0 || len(b) == 0 {
			return nil, nil
		}
		if err := reserve[T](mem, setops.MaxIntersect(len(a), len(b))); err != nil {
			return nil, err
		}
		return setops.Intersect(make([]T, 0, setops.MaxIntersect(len(a), len(b))), a, b), nil
	case expr.OpUnion:
		if len(b) == 0 {
			return a, nil
		}
		if len(a) == 0 {
			return b, nil
		}
		if err := reserve[T](mem, setops.MaxUnion(len(a), len(b))); err != nil {
			return nil, err
		}
		return setops.Union(make([]T, 0, setops.MaxUnion(len(a), len(b))), a, b), nil
	case expr.OpDifference:
		if len(a) == 0 || len(b) == 0 {
			return a, nil
		}
		if err := reserve[T](mem, setops.MaxDifference(len(a), len(b))); err != nil {
			return nil, err
		}
		return setops.Difference(make([]T, 0, len(a)), a, b), nil
	default:
		return nil, fmt.Errorf("backend: unexpected operator %s", op)
	}
}

// MatchAny checks the sets in batches on the pool.
func (c *CPU[T]) MatchAny(ctx context.Context, sets []*setview.Set[T], probe []T, _ *resource.Reservation) (*bitset.BitSet, error) {
	hits := bitset.New(uint(len(sets)))
	batches := (len(sets) + matchBatch - 1) / matchBatch
	err := c.run(ctx, batches, func(b int) error {
		lo := b * matchBatch
		hi := min(lo+matchBatch, len(sets))
		for i := lo; i < hi; i++ {
			if setops.Intersects(sets[i].Values(), probe) {
				hits.Set(uint(i))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}
