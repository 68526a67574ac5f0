// Package setfile implements the binary layout of multi-set files.
//
// A set file holds any number of immutable scalar sets of one value kind.
// Every record is 8-byte aligned so a mapped file can be viewed as typed
// slices without copying.
//
// # Layout
//
//	+--------------------------------------------------+
//	| Header (32 bytes)                                |
//	|   magic "SSET", version, kind, set count         |
//	+--------------------------------------------------+
//	| Directory (24 bytes per set)                     |
//	|   record offset, value count, buckets, CRC32C    |
//	+--------------------------------------------------+
//	| Record 0                                         |
//	|   bucket starts ((buckets+1) x uint32), padding  |
//	|   values (count x kind size), padding            |
//	+--------------------------------------------------+
//	| Record 1 ...                                     |
//	+--------------------------------------------------+
//
// All integers are little-endian. Values are stored in strictly increasing
// order, NaN-free, with negative zero folded onto positive zero.
//
// # Bucket Index
//
// Each record carries a bucket index that splits the key span of the set into
// equal-width key ranges. A lookup maps the probe key to its bucket and
// binary-searches only the values inside that bucket.
//
// # Compression
//
// Set files may be shipped compressed (".zst" or ".lz4"). Compressed files are
// decoded into an aligned in-memory buffer before use; they cannot be mapped.
package setfile
