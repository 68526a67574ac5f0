// Package resource implements the resource controller shared by an engine.
//
// The Controller manages three resource types:
//
//   - Memory: track and limit memory used by query evaluation (non-blocking, fail-fast)
//   - Concurrency: limit background jobs such as set preloading
//   - IO: rate-limit reads of remote set files
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	res := rc.Reserve()
//	defer res.Release()
//	if err := res.Acquire(int64(len(a)+len(b)) * 8); err != nil {
//	    // ErrMemoryLimitExceeded - reported to the caller, never retried
//	}
//
// # IO Rate Limiting
//
// Token bucket rate limiter for preloading remote set files:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//	r := resource.NewRateLimitedReader(ctx, blobReader, rc)
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
