package gpu

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Session submits the kernels of one query. It is not safe for concurrent
// use. Buffers created through a session are released by Close.
type Session struct {
	dev    *Device
	bufs   []Buffer
	closed bool
}

func (s *Session) dispatch(op string, fn func() error) error {
	if s.closed {
		return ErrClosed
	}
	if hook := s.dev.cfg.FaultHook; hook != nil {
		if err := hook(op); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExecution, op, err)
		}
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecution, op, err)
	}
	return nil
}

func (s *Session) track(b Buffer) Buffer {
	s.bufs = append(s.bufs, b)
	return b
}

// Upload transfers keys to the device.
func (s *Session) Upload(keys []uint64) (View, error) {
	if len(keys) == 0 {
		return View{}, nil
	}
	var buf Buffer
	err := s.dispatch("upload", func() (err error) {
		buf, err = s.dev.drv.Upload(keys)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return Whole(s.track(buf)), nil
}

// Download transfers the keys of v to the host.
func (s *Session) Download(v View) ([]uint64, error) {
	if v.Len == 0 {
		return nil, nil
	}
	var out []uint64
	err := s.dispatch("download", func() (err error) {
		out, err = s.dev.drv.Download(v)
		return err
	})
	return out, err
}

func (s *Session) markCompact(a, b View, invert bool) (View, error) {
	var flags Buffer
	err := s.dispatch("mark", func() (err error) {
		flags, err = s.dev.drv.Mark(a, b, invert)
		return err
	})
	if err != nil {
		return View{}, err
	}
	s.track(flags)

	var out Buffer
	err = s.dispatch("compact", func() (err error) {
		out, err = s.dev.drv.Compact(a, flags)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return Whole(s.track(out)), nil
}

// Intersect returns the keys present in both a and b.
func (s *Session) Intersect(a, b View) (View, error) {
	if a.Len == 0 || b.Len == 0 {
		return View{}, nil
	}
	return s.markCompact(a, b, false)
}

// Difference returns the keys of a absent from b.
func (s *Session) Difference(a, b View) (View, error) {
	if a.Len == 0 || b.Len == 0 {
		return a, nil
	}
	return s.markCompact(a, b, true)
}

// Union returns the keys present in a or b.
func (s *Session) Union(a, b View) (View, error) {
	if a.Len == 0 {
		return b, nil
	}
	if b.Len == 0 {
		return a, nil
	}
	rest, err := s.Difference(b, a)
	if err != nil {
		return View{}, err
	}
	if rest.Len == 0 {
		return a, nil
	}

	var out Buffer
	err = s.dispatch("merge", func() (err error) {
		out, err = s.dev.drv.Merge(a, rest)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return Whole(s.track(out)), nil
}

// AnyMatch reports, per segment, whether it shares a key with probe.
func (s *Session) AnyMatch(segments []View, probe View) (*bitset.BitSet, error) {
	if probe.Len == 0 {
		return bitset.New(uint(len(segments))), nil
	}
	var out *bitset.BitSet
	err := s.dispatch("any_match", func() (err error) {
		out, err = s.dev.drv.AnyMatch(segments, probe)
		return err
	})
	return out, err
}

// Close releases every buffer of the session and hands the device queue to
// the next waiter. Close is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, b := range s.bufs {
		s.dev.drv.Release(b)
	}
	s.bufs = nil
	s.dev.queue.Release(1)
}
