// Package resource implements the process-wide resource controller.
//
// The controller governs three resources:
//
//   - Memory: a byte budget shared by the array table and the kernel
//     admission guard (non-blocking, fail-fast)
//   - Background jobs: concurrent snapshot save/load slots
//   - IO: a token bucket throttling snapshot reads and writes
//
// # Memory Management
//
// All memory held by published arrays is tracked in a single atomic counter.
// Guarded operations (scans, hashes) call Reserve before any allocation; the
// check against the limit and the increment are one compare-and-swap, so two
// concurrent admissions can never jointly exceed the budget:
//
//	res, err := rc.Reserve(projected)
//	if err != nil {
//	    // *LimitError, matches ErrMemoryLimitExceeded
//	}
//	defer res.Release() // returns whatever was not taken
//
// Allocations draw from the reservation with Take; the taken bytes are owned by
// the allocation and released with ReleaseMemory when it is freed.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
