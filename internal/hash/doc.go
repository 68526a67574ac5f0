// Package hash provides the CRC32-Castagnoli checksum used for set file
// records and S3 upload integrity.
//
//	sum := hash.CRC32C(record)
package hash
