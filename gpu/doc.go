// Package gpu provides the device used by the GPU execution backend.
//
// A Device is opened once per process with Open, shared by every engine that
// evaluates on it, and closed explicitly by its owner. Work is submitted
// through a Session, which holds the device's single-writer queue for the
// duration of one query: sessions of concurrent queries wait on Acquire.
//
// Two drivers are available:
//
//   - KindEmulator executes the kernels in software over fixed-size index
//     windows with goroutines. It is always available and is the reference
//     the other drivers are tested against.
//   - KindOpenCL dispatches the kernels to an OpenCL device. It is compiled
//     only with the "gpu" build tag and cgo; other builds report
//     ErrUnavailable.
//
// All kernels operate on order keys (see scalar.Key). Intersection and
// difference are expressed as a membership mark followed by stream
// compaction; union compacts the right operand against the left one and
// merges the disjoint results by rank.
package gpu
