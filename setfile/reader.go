package setfile

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/hupe1980/scalareval/internal/hash"
	"github.com/hupe1980/scalareval/scalar"
)

// File is a parsed set file. It borrows the bytes passed to Parse.
type File struct {
	data    []byte
	header  Header
	entries []DirEntry
}

// Record is one encoded set inside a File.
type Record struct {
	Index    int
	Count    int
	Checksum uint32

	buckets uint32
	raw     []byte
	values  []byte
}

// Parse validates the header and directory of data.
// Records are checked lazily by Record and Verify.
func Parse(data []byte) (*File, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	dirEnd := uint64(HeaderSize) + uint64(h.Count)*DirEntrySize
	if dirEnd > uint64(len(data)) {
		return nil, fmt.Errorf("%w: directory exceeds file (%d sets)", ErrCorrupt, h.Count)
	}
	entries := make([]DirEntry, h.Count)
	for i := range entries {
		e := decodeDirEntry(data[HeaderSize+i*DirEntrySize:])
		if e.Offset%Alignment != 0 || e.Offset < dirEnd {
			return nil, fmt.Errorf("%w: record %d offset %d", ErrCorrupt, i, e.Offset)
		}
		if e.Count > math.MaxUint32 || (e.Count == 0) != (e.Buckets == 0) {
			return nil, fmt.Errorf("%w: record %d shape", ErrCorrupt, i)
		}
		size := recordSize(h.Kind, e.Count, e.Buckets)
		if e.Offset+size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: record %d exceeds file", ErrCorrupt, i)
		}
		entries[i] = e
	}
	return &File{data: data, header: h, entries: entries}, nil
}

// Header returns the decoded header.
func (f *File) Header() Header { return f.header }

// Kind returns the value kind of every set in the file.
func (f *File) Kind() scalar.Kind { return f.header.Kind }

// Len returns the number of sets in the file.
func (f *File) Len() int { return len(f.entries) }

// Entry returns the directory entry of set i.
func (f *File) Entry(i int) DirEntry { return f.entries[i] }

// IndexSpan returns the byte range of the bucket index of set i. Empty sets
// have no index and report a zero size.
func (f *File) IndexSpan(i int) (offset, size int) {
	e := f.entries[i]
	return int(e.Offset), int(bucketBytes(e.Buckets))
}

// Record returns set i without verifying its checksum.
func (f *File) Record(i int) (Record, error) {
	if i < 0 || i >= len(f.entries) {
		return Record{}, fmt.Errorf("setfile: record %d out of range [0,%d)", i, len(f.entries))
	}
	e := f.entries[i]
	size := recordSize(f.header.Kind, e.Count, e.Buckets)
	raw := f.data[e.Offset : e.Offset+size]
	bb := bucketBytes(e.Buckets)
	return Record{
		Index:    i,
		Count:    int(e.Count),
		Checksum: e.Checksum,
		buckets:  e.Buckets,
		raw:      raw,
		values:   raw[bb : bb+e.Count*uint64(f.header.Kind.Size())],
	}, nil
}

// Verify checks the checksum of set i.
func (f *File) Verify(i int) error {
	r, err := f.Record(i)
	if err != nil {
		return err
	}
	if got := hash.CRC32C(r.raw); got != r.Checksum {
		return fmt.Errorf("%w: record %d checksum %08x, want %08x", ErrCorrupt, i, got, r.Checksum)
	}
	return nil
}

// VerifyAll checks the checksum of every set.
func (f *File) VerifyAll() error {
	for i := range f.entries {
		if err := f.Verify(i); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the values of r as a typed slice and its bucket index.
// The slice aliases the file bytes when they are suitably aligned and the
// host is little-endian; otherwise the values are decoded into a new slice.
func Values[T scalar.Value](r Record, kind scalar.Kind) ([]T, Buckets, error) {
	if kind != scalar.KindOf[T]() {
		return nil, Buckets{}, fmt.Errorf("%w: file holds %s, requested %s", ErrKindMismatch, kind, scalar.KindOf[T]())
	}
	if r.Count == 0 {
		return []T{}, Buckets{}, nil
	}
	size := scalar.SizeOf[T]()
	var values []T
	ptr := unsafe.Pointer(unsafe.SliceData(r.values))
	if hostLittleEndian && uintptr(ptr)%uintptr(size) == 0 {
		values = unsafe.Slice((*T)(ptr), r.Count)
	} else {
		values = make([]T, r.Count)
		for i := range values {
			values[i] = getValue[T](r.values[i*size:])
		}
	}

	starts := make([]uint32, r.buckets+1)
	for i := range starts {
		starts[i] = le.Uint32(r.raw[i*4:])
	}
	if starts[0] != 0 || starts[len(starts)-1] != uint32(r.Count) {
		return nil, Buckets{}, fmt.Errorf("%w: record %d bucket table", ErrCorrupt, r.Index)
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			return nil, Buckets{}, fmt.Errorf("%w: record %d bucket table", ErrCorrupt, r.Index)
		}
	}
	minKey := scalar.Key(values[0])
	return values, Buckets{
		Starts: starts,
		MinKey: minKey,
		Width:  bucketGeometry(minKey, scalar.Key(values[len(values)-1]), r.buckets),
	}, nil
}

func getValue[T scalar.Value](src []byte) T {
	var out T
	switch p := any(&out).(type) {
	case *int32:
		*p = int32(le.Uint32(src))
	case *uint32:
		*p = le.Uint32(src)
	case *float32:
		*p = math.Float32frombits(le.Uint32(src))
	case *int64:
		*p = int64(le.Uint64(src))
	case *uint64:
		*p = le.Uint64(src)
	case *float64:
		*p = math.Float64frombits(le.Uint64(src))
	}
	return out
}
