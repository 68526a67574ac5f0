package setfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"github.com/hupe1980/scalareval/scalar"
)

const (
	// Magic identifies a set file.
	Magic = "SSET"

	// Version is the current layout version.
	Version uint16 = 1

	// HeaderSize is the fixed size of the file header.
	HeaderSize = 32

	// DirEntrySize is the size of one directory entry.
	DirEntrySize = 24

	// Alignment of every record and of the value block inside a record.
	Alignment = 8
)

var (
	// ErrBadMagic is returned when the data does not start with Magic.
	ErrBadMagic = errors.New("setfile: bad magic")
	// ErrUnsupportedVersion is returned for layouts newer than Version.
	ErrUnsupportedVersion = errors.New("setfile: unsupported version")
	// ErrCorrupt is returned when offsets, sizes or checksums are inconsistent.
	ErrCorrupt = errors.New("setfile: corrupt file")
	// ErrKindMismatch is returned when a file is read as the wrong value type.
	ErrKindMismatch = errors.New("setfile: value kind mismatch")
	// ErrUnsorted is returned when writing values that are not strictly increasing.
	ErrUnsorted = errors.New("setfile: values not strictly increasing")
)

var le = binary.LittleEndian

// Header is the decoded file header.
type Header struct {
	Version uint16
	Kind    scalar.Kind
	Count   uint32
}

func (h Header) encode(dst []byte) {
	copy(dst[0:4], Magic)
	le.PutUint16(dst[4:6], h.Version)
	dst[6] = byte(h.Kind)
	dst[7] = 0
	le.PutUint32(dst[8:12], h.Count)
	le.PutUint32(dst[12:16], 0)
	le.PutUint64(dst[16:24], HeaderSize)
	le.PutUint64(dst[24:32], 0)
}

func decodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(src))
	}
	if string(src[0:4]) != Magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version: le.Uint16(src[4:6]),
		Kind:    scalar.Kind(src[6]),
		Count:   le.Uint32(src[8:12]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Kind.Size() == 0 {
		return Header{}, fmt.Errorf("%w: unknown kind %d", ErrCorrupt, src[6])
	}
	if le.Uint64(src[16:24]) != HeaderSize {
		return Header{}, fmt.Errorf("%w: directory offset", ErrCorrupt)
	}
	return h, nil
}

// DirEntry locates one record.
type DirEntry struct {
	Offset   uint64
	Count    uint64
	Buckets  uint32
	Checksum uint32
}

func (e DirEntry) encode(dst []byte) {
	le.PutUint64(dst[0:8], e.Offset)
	le.PutUint64(dst[8:16], e.Count)
	le.PutUint32(dst[16:20], e.Buckets)
	le.PutUint32(dst[20:24], e.Checksum)
}

func decodeDirEntry(src []byte) DirEntry {
	return DirEntry{
		Offset:   le.Uint64(src[0:8]),
		Count:    le.Uint64(src[8:16]),
		Buckets:  le.Uint32(src[16:20]),
		Checksum: le.Uint32(src[20:24]),
	}
}

// bucketBytes returns the aligned size of the bucket table for n buckets.
func bucketBytes(buckets uint32) uint64 {
	if buckets == 0 {
		return 0
	}
	return align(uint64(buckets+1) * 4)
}

// recordSize returns the aligned size of a record.
func recordSize(kind scalar.Kind, count uint64, buckets uint32) uint64 {
	return bucketBytes(buckets) + align(count*uint64(kind.Size()))
}

func align(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// AlignedBytes returns a zeroed byte slice of length n whose first byte is
// 8-byte aligned, suitable for decoding a file that is later viewed as typed
// values.
func AlignedBytes(n int) []byte {
	if n == 0 {
		return []byte{}
	}
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

var hostLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()
