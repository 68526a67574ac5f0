// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	blob, err := store.Open(ctx, "i32_1000_sets_with_100_values.bin.zst")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large set files
//   - CRC32C integrity checks on small uploads
//   - Automatic pagination for listing
package s3
