package setfile

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"github.com/hupe1980/scalareval/internal/hash"
	"github.com/hupe1980/scalareval/scalar"
)

// WriterOptions configures Encode.
type WriterOptions struct {
	// BucketSize is the average number of values per bucket.
	// Defaults to DefaultBucketSize.
	BucketSize int
}

// Encode writes sets as one set file. Every set must be strictly increasing,
// NaN-free and canonical (see scalar.Canonical).
func Encode[T scalar.Value](w io.Writer, sets [][]T, optFns ...func(*WriterOptions)) error {
	opts := WriterOptions{BucketSize: DefaultBucketSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if uint64(len(sets)) > math.MaxUint32 {
		return fmt.Errorf("setfile: too many sets: %d", len(sets))
	}

	kind := scalar.KindOf[T]()
	entries := make([]DirEntry, len(sets))
	offset := align(uint64(HeaderSize + DirEntrySize*len(sets)))
	records := make([][]byte, len(sets))
	for i, values := range sets {
		if err := checkSorted(values); err != nil {
			return fmt.Errorf("set %d: %w", i, err)
		}
		buckets := BucketCount(len(values), opts.BucketSize)
		rec := encodeRecord(values, BuildBuckets(values, buckets))
		records[i] = rec
		entries[i] = DirEntry{
			Offset:   offset,
			Count:    uint64(len(values)),
			Buckets:  buckets,
			Checksum: hash.CRC32C(rec),
		}
		offset += uint64(len(rec))
	}

	bw := bufio.NewWriterSize(w, 1<<20)
	head := make([]byte, align(uint64(HeaderSize+DirEntrySize*len(sets))))
	Header{Version: Version, Kind: kind, Count: uint32(len(sets))}.encode(head)
	for i, e := range entries {
		e.encode(head[HeaderSize+i*DirEntrySize:])
	}
	if _, err := bw.Write(head); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile encodes sets to path, replacing any existing file.
func WriteFile[T scalar.Value](path string, sets [][]T, optFns ...func(*WriterOptions)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, sets, optFns...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeRecord[T scalar.Value](values []T, b Buckets) []byte {
	size := scalar.SizeOf[T]()
	bb := bucketBytes(uint32(b.Count()))
	rec := make([]byte, bb+align(uint64(len(values)*size)))
	for i, s := range b.Starts {
		le.PutUint32(rec[i*4:], s)
	}
	dst := rec[bb:]
	if len(values) == 0 {
		return rec
	}
	if hostLittleEndian {
		copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*size))
	} else {
		for i, v := range values {
			putValue(dst[i*size:], v)
		}
	}
	// Negative zero is stored as positive zero.
	for i, v := range values {
		if scalar.IsNegZero(v) {
			putValue(dst[i*size:], T(0))
		}
	}
	return rec
}

func putValue[T scalar.Value](dst []byte, v T) {
	switch x := any(v).(type) {
	case int32:
		le.PutUint32(dst, uint32(x))
	case uint32:
		le.PutUint32(dst, x)
	case float32:
		le.PutUint32(dst, math.Float32bits(x))
	case int64:
		le.PutUint64(dst, uint64(x))
	case uint64:
		le.PutUint64(dst, x)
	case float64:
		le.PutUint64(dst, math.Float64bits(x))
	}
}

func checkSorted[T scalar.Value](values []T) error {
	for i, v := range values {
		if scalar.IsNaN(v) {
			return fmt.Errorf("%w: NaN at %d", ErrUnsorted, i)
		}
		if i > 0 && !(values[i-1] < v) {
			return fmt.Errorf("%w: position %d", ErrUnsorted, i)
		}
	}
	return nil
}
