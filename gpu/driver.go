package gpu

import "github.com/bits-and-blooms/bitset"

// KeySize is the size in bytes of one order key in device memory.
const KeySize = 8

// Buffer is device memory owned by a Driver.
type Buffer interface {
	// Len returns the number of elements in the buffer.
	Len() int
}

// View is a contiguous range of a key buffer. The zero View is empty.
type View struct {
	Buf Buffer
	Off int
	Len int
}

// Whole returns a view of the entire buffer.
func Whole(b Buffer) View {
	if b == nil {
		return View{}
	}
	return View{Buf: b, Len: b.Len()}
}

// Sub returns the view of elements [i, j) of v.
func (v View) Sub(i, j int) View {
	if i >= j {
		return View{}
	}
	return View{Buf: v.Buf, Off: v.Off + i, Len: j - i}
}

// Driver executes kernels on one device. Key buffers hold strictly
// increasing order keys; flag buffers hold one membership flag per element
// of the view they were computed for. Drivers are used by one session at a
// time.
type Driver interface {
	// Name describes the device.
	Name() string
	// Upload copies keys into a new key buffer.
	Upload(keys []uint64) (Buffer, error)
	// Download copies the keys of v back to the host.
	Download(v View) ([]uint64, error)
	// Mark returns flags telling for every key of a whether it occurs in b,
	// negated when invert is set.
	Mark(a, b View, invert bool) (Buffer, error)
	// Compact returns a key buffer with the keys of a whose flag is set.
	Compact(a View, flags Buffer) (Buffer, error)
	// Merge returns the sorted union of two disjoint views.
	Merge(a, b View) (Buffer, error)
	// AnyMatch reports, per segment, whether it shares a key with probe.
	AnyMatch(segments []View, probe View) (*bitset.BitSet, error)
	// Release frees a buffer. Releasing a buffer twice is a no-op.
	Release(b Buffer)
	// Close frees the device.
	Close() error
}
