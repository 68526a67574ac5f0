// Package mmap provides read-only memory-mapped access to set files.
//
// # Usage
//
//	m, err := mmap.Open("i32_1000_sets_with_100_values.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	region, _ := m.Region(offset, size)
//	_ = region.Advise(mmap.AccessWillNeed)
//
// Populate touches every page so later evaluation does not pay for page
// faults; it is how the benchmark "preload" mode warms a file.
//
// # Platform Support
//
//   - Unix: mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// Mapping and Region are safe for concurrent reads. Close is idempotent, but
// callers must not use slices from Bytes after it returns.
package mmap
