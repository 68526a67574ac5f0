package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/gpu"
	"github.com/hupe1980/scalareval/internal/partition"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
)

// GPU evaluates chunks with the kernels of a shared device. Queries are
// serialized by the device queue; chunks of one query run in order.
type GPU[T scalar.Value] struct {
	dev *gpu.Device
}

// NewGPU creates a GPU backend on dev. The caller keeps ownership of dev.
func NewGPU[T scalar.Value](dev *gpu.Device) (*GPU[T], error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: no device configured", gpu.ErrUnavailable)
	}
	return &GPU[T]{dev: dev}, nil
}

func (*GPU[T]) sealed() {}

// Kind returns KindGPU.
func (*GPU[T]) Kind() Kind { return KindGPU }

// Device returns the device the backend dispatches to.
func (g *GPU[T]) Device() *gpu.Device { return g.dev }

// Close is a no-op; the device is owned by the caller.
func (g *GPU[T]) Close() error { return nil }

// deviceSet is a set resident on the device for the duration of a session.
type deviceSet[T scalar.Value] struct {
	set  *setview.Set[T]
	view gpu.View
}

func upload[T scalar.Value](s *gpu.Session, set *setview.Set[T], mem *resource.Reservation) (gpu.View, error) {
	if set.Len() == 0 {
		return gpu.View{}, nil
	}
	if err := mem.Acquire(int64(set.Len()) * gpu.KeySize); err != nil {
		return gpu.View{}, err
	}
	return s.Upload(scalar.AppendKeys(make([]uint64, 0, set.Len()), set.Values()))
}

// Evaluate uploads every referenced set once and runs the chunks in order.
func (g *GPU[T]) Evaluate(ctx context.Context, q Query[T]) (*Output[T], error) {
	s, err := g.dev.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	resident := make(map[setview.Handle]deviceSet[T])
	out := &Output[T]{
		Partials: make([][]T, len(q.Chunks)),
		Timings:  make([]time.Duration, len(q.Chunks)),
	}
	for i, c := range q.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		r, err := g.evalChunk(s, c.Root, q, resident)
		if err != nil {
			return nil, err
		}
		out.Partials[i] = r
		out.Timings[i] = time.Since(start)
	}
	return out, nil
}

func (g *GPU[T]) evalChunk(s *gpu.Session, root *partition.Node, q Query[T], resident map[setview.Handle]deviceSet[T]) ([]T, error) {
	type frame struct {
		node     *partition.Node
		expanded bool
	}
	var (
		views []gpu.View
		stack = []frame{{node: root}}
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
			ds, ok := resident[n.Handle]
			if !ok {
				set, found := q.Sets.Set(n.Handle)
				if !found {
					return nil, &UnknownSetError{Handle: n.Handle}
				}
				v, err := upload(s, set, q.Memory)
				if err != nil {
					return nil, err
				}
				ds = deviceSet[T]{set: set, view: v}
				resident[n.Handle] = ds
			}
			var v gpu.View
			if !n.Empty() {
				v = ds.view.Sub(ds.set.Bounds(n.Lo, n.Hi))
			}
			views = append(views, v)
			continue
		}

		a, b := views[len(views)-2], views[len(views)-1]
		views = views[:len(views)-2]
		var (
			r   gpu.View
			err error
		)
		switch n.Op {
		case expr.OpIntersect:
			r, err = s.Intersect(a, b)
		case expr.OpUnion:
			r, err = s.Union(a, b)
		case expr.OpDifference:
			r, err = s.Difference(a, b)
		default:
			err = fmt.Errorf("backend: unexpected operator %s", n.Op)
		}
		if err != nil {
			return nil, err
		}
		views = append(views, r)
	}

	result := views[0]
	if result.Len == 0 {
		return nil, nil
	}
	if err := reserve[T](q.Memory, result.Len); err != nil {
		return nil, err
	}
	keys, err := s.Download(result)
	if err != nil {
		return nil, err
	}
	return scalar.AppendValues(make([]T, 0, len(keys)), keys), nil
}

// MatchAny uploads every set and the probe and runs one any-match launch.
func (g *GPU[T]) MatchAny(ctx context.Context, sets []*setview.Set[T], probe []T, mem *resource.Reservation) (*bitset.BitSet, error) {
	s, err := g.dev.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	segments := make([]gpu.View, len(sets))
	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if segments[i], err = upload(s, set, mem); err != nil {
			return nil, err
		}
	}
	if err := mem.Acquire(int64(len(probe)) * gpu.KeySize); err != nil {
		return nil, err
	}
	pv, err := s.Upload(scalar.AppendKeys(make([]uint64, 0, len(probe)), probe))
	if err != nil {
		return nil, err
	}
	return s.AnyMatch(segments, pv)
}
