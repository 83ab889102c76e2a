package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// LimitError reports a rejected memory admission.
//
// It matches ErrMemoryLimitExceeded with errors.Is.
type LimitError struct {
	Requested int64
	Used      int64
	Limit     int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded: requested %d bytes, %d of %d in use", e.Requested, e.Used, e.Limit)
}

func (e *LimitError) Is(target error) bool { return target == ErrMemoryLimitExceeded }

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the budget for guarded allocations.
	// If 0, no limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent background jobs
	// (snapshot save/load). If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum IO throughput for background jobs.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages the process-wide memory budget, background job slots
// and background IO bandwidth.
type Controller struct {
	cfg Config

	// Memory: every byte held by the array table plus outstanding reservations.
	memUsed atomic.Int64

	// Concurrency
	bgSem *semaphore.Weighted

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves bytes against the budget.
// Returns a *LimitError if used+bytes would exceed the limit.
// Non-blocking; check and reserve happen in one atomic step.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	limit := c.cfg.MemoryLimitBytes
	for {
		used := c.memUsed.Load()
		if limit > 0 && (bytes > limit || used > limit-bytes) {
			return &LimitError{Requested: bytes, Used: used, Limit: limit}
		}
		if c.memUsed.CompareAndSwap(used, used+bytes) {
			return nil
		}
	}
}

// TrackMemory accounts bytes without checking the limit.
// Used for allocations that are not subject to admission control.
func (c *Controller) TrackMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(bytes)
}

// ReleaseMemory releases reserved or tracked memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// Reserve acquires bytes and returns a Reservation that allocations can draw from.
func (c *Controller) Reserve(bytes int64) (*Reservation, error) {
	if err := c.AcquireMemory(bytes); err != nil {
		return nil, err
	}
	r := &Reservation{c: c}
	if bytes > 0 && c != nil {
		r.remaining.Store(bytes)
	}
	return r, nil
}

// Reservation is admitted memory that has not yet been assigned to an owner.
//
// Take transfers bytes to the caller, who then releases them through
// Controller.ReleaseMemory when the owning allocation is freed. Release returns
// whatever was never taken.
type Reservation struct {
	c         *Controller
	remaining atomic.Int64
}

// Take draws up to n bytes from the reservation and returns how many were covered.
func (r *Reservation) Take(n int64) int64 {
	if r == nil || n <= 0 {
		return 0
	}
	for {
		rem := r.remaining.Load()
		if rem <= 0 {
			return 0
		}
		take := min(n, rem)
		if r.remaining.CompareAndSwap(rem, rem-take) {
			return take
		}
	}
}

// Remaining returns the bytes not yet taken.
func (r *Reservation) Remaining() int64 {
	if r == nil {
		return 0
	}
	return r.remaining.Load()
}

// Release returns the untaken remainder to the controller. Safe to call twice.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	if rem := r.remaining.Swap(0); rem > 0 {
		r.c.ReleaseMemory(rem)
	}
}

// AcquireBackground reserves a background job slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// ReleaseBackground releases a background job slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// TryAcquireBackground reserves a background job slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN rejects requests larger than the burst; feed them in burst-sized steps.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
