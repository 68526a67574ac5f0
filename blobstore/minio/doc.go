// Package minio implements blobstore.BlobStore on the MinIO client, for
// MinIO and other S3-compatible servers that do not need the AWS SDK.
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false, "sets", "")
//	handles, err := catalog.OpenBlob(ctx, store, "i32_1000_sets_with_100_values.bin")
//
// Blobs are read with ranged GetObject calls; set views preload them once.
package minio
