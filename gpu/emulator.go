package gpu

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
)

var errForeignBuffer = errors.New("buffer belongs to another driver")

type keyBuffer struct {
	keys []uint64
}

func (b *keyBuffer) Len() int { return len(b.keys) }

type flagBuffer struct {
	flags *bitset.BitSet
	n     int
}

func (b *flagBuffer) Len() int { return b.n }

// emulator runs the kernels on the host. Each kernel launch is split into
// windows of a fixed number of elements that run in parallel.
type emulator struct {
	window  int
	workers int
}

func newEmulator(window, workers int) *emulator {
	return &emulator{window: window, workers: workers}
}

func (e *emulator) Name() string {
	return fmt.Sprintf("software emulator (window=%d, workers=%d)", e.window, e.workers)
}

func (e *emulator) keys(v View) ([]uint64, error) {
	if v.Len == 0 {
		return nil, nil
	}
	b, ok := v.Buf.(*keyBuffer)
	if !ok {
		return nil, errForeignBuffer
	}
	if v.Off < 0 || v.Off+v.Len > len(b.keys) {
		return nil, fmt.Errorf("view [%d, %d) out of range of buffer with %d keys", v.Off, v.Off+v.Len, len(b.keys))
	}
	return b.keys[v.Off : v.Off+v.Len], nil
}

// launch runs fn once per window of n elements. Windows are multiples of 64
// so flag words are never shared between windows.
func (e *emulator) launch(n int, fn func(w, lo, hi int) error) error {
	var g errgroup.Group
	g.SetLimit(e.workers)
	for w, lo := 0, 0; lo < n; w, lo = w+1, lo+e.window {
		hi := min(lo+e.window, n)
		g.Go(func() error { return fn(w, lo, hi) })
	}
	return g.Wait()
}

func (e *emulator) windows(n int) int {
	return (n + e.window - 1) / e.window
}

func (e *emulator) Upload(keys []uint64) (Buffer, error) {
	return &keyBuffer{keys: slices.Clone(keys)}, nil
}

func (e *emulator) Download(v View) ([]uint64, error) {
	keys, err := e.keys(v)
	if err != nil {
		return nil, err
	}
	return slices.Clone(keys), nil
}

func (e *emulator) Mark(av, bv View, invert bool) (Buffer, error) {
	a, err := e.keys(av)
	if err != nil {
		return nil, err
	}
	b, err := e.keys(bv)
	if err != nil {
		return nil, err
	}
	flags := bitset.New(uint(len(a)))
	err = e.launch(len(a), func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			_, found := slices.BinarySearch(b, a[i])
			if found != invert {
				flags.Set(uint(i))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &flagBuffer{flags: flags, n: len(a)}, nil
}

func (e *emulator) Compact(av View, fb Buffer) (Buffer, error) {
	a, err := e.keys(av)
	if err != nil {
		return nil, err
	}
	flags, ok := fb.(*flagBuffer)
	if !ok {
		return nil, errForeignBuffer
	}
	if flags.n != len(a) {
		return nil, fmt.Errorf("flag count %d does not match view length %d", flags.n, len(a))
	}

	// scan: per-window counts, then an exclusive prefix sum over windows.
	offsets := make([]int, e.windows(len(a))+1)
	err = e.launch(len(a), func(w, lo, hi int) error {
		offsets[w+1] = countRange(flags.flags, lo, hi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for w := 1; w < len(offsets); w++ {
		offsets[w] += offsets[w-1]
	}

	// scatter
	out := make([]uint64, offsets[len(offsets)-1])
	err = e.launch(len(a), func(w, lo, hi int) error {
		pos := offsets[w]
		for i, ok := flags.flags.NextSet(uint(lo)); ok && int(i) < hi; i, ok = flags.flags.NextSet(i + 1) {
			out[pos] = a[i]
			pos++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &keyBuffer{keys: out}, nil
}

func countRange(b *bitset.BitSet, lo, hi int) int {
	c := 0
	for i, ok := b.NextSet(uint(lo)); ok && int(i) < hi; i, ok = b.NextSet(i + 1) {
		c++
	}
	return c
}

func (e *emulator) Merge(av, bv View) (Buffer, error) {
	a, err := e.keys(av)
	if err != nil {
		return nil, err
	}
	b, err := e.keys(bv)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(a)+len(b))
	rank := func(src, other []uint64) func(int, int, int) error {
		return func(_, lo, hi int) error {
			for i := lo; i < hi; i++ {
				j, found := slices.BinarySearch(other, src[i])
				if found {
					return fmt.Errorf("merge inputs share key %d", src[i])
				}
				out[i+j] = src[i]
			}
			return nil
		}
	}
	if err := e.launch(len(a), rank(a, b)); err != nil {
		return nil, err
	}
	if err := e.launch(len(b), rank(b, a)); err != nil {
		return nil, err
	}
	return &keyBuffer{keys: out}, nil
}

func (e *emulator) AnyMatch(segments []View, pv View) (*bitset.BitSet, error) {
	probe, err := e.keys(pv)
	if err != nil {
		return nil, err
	}
	sets := make([][]uint64, len(segments))
	for i, v := range segments {
		if sets[i], err = e.keys(v); err != nil {
			return nil, err
		}
	}

	// One work item per segment; results are gathered per window of
	// segments so that no two goroutines write the same bitset word.
	hits := bitset.New(uint(len(segments)))
	err = e.launch(len(segments), func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if anyMember(sets[i], probe) {
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

func anyMember(set, probe []uint64) bool {
	if len(set) == 0 || len(probe) == 0 {
		return false
	}
	if set[len(set)-1] < probe[0] || probe[len(probe)-1] < set[0] {
		return false
	}
	if len(set) > len(probe) {
		set, probe = probe, set
	}
	for _, k := range set {
		if _, found := slices.BinarySearch(probe, k); found {
			return true
		}
	}
	return false
}

func (e *emulator) Release(Buffer) {}

func (e *emulator) Close() error { return nil }
