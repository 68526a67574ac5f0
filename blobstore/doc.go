// Package blobstore provides read access to set files wherever they live.
//
// A BlobStore opens immutable blobs by name. Local files are memory-mapped
// and expose their bytes through Mappable, so set views can alias them
// without copying. Remote stores (see the s3 and minio sub-packages) serve
// ranged reads; their blobs are preloaded into memory before evaluation.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap support
//   - MemoryStore: in-memory store for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Implementations must be safe for concurrent use.
package blobstore
