// Package parallel provides the data-parallel execution substrate used by the
// kernels: a fixed worker pool, a chunked parallel loop and an order-preserving
// parallel prefix scan.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultGrain is the minimum number of elements handled by one chunk.
const DefaultGrain = 16 * 1024

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool manages a fixed set of goroutines executing chunks of kernel work.
// Reusing the goroutines avoids spawning a fresh set for every request.
type Pool struct {
	numWorkers int
	grain      int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewPool creates a pool with numWorkers goroutines.
// numWorkers <= 0 uses GOMAXPROCS; grain <= 0 uses DefaultGrain.
func NewPool(numWorkers, grain int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if grain <= 0 {
		grain = DefaultGrain
	}

	p := &Pool{
		numWorkers: numWorkers,
		grain:      grain,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			// Drain remaining work before exiting
			for {
				select {
				case task, ok := <-p.workCh:
					if !ok {
						return
					}
					task()
				default:
					return
				}
			}
		case task, ok := <-p.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

// Grain returns the minimum chunk size.
func (p *Pool) Grain() int {
	if p == nil {
		return DefaultGrain
	}
	return p.grain
}

// Submit enqueues a task.
//
// Error conditions:
//   - Returns ErrPoolClosed if the pool is closed
//   - Returns ctx.Err() if the context is done before the task is enqueued
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- task:
		return nil
	case <-p.stopCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts down the pool after queued work has run.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.submitMu.Lock()
	close(p.stopCh)
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}

// span is a half-open index range [lo, hi).
type span struct {
	lo, hi int
}

// partition splits [0, n) into contiguous chunks of at least grain elements,
// at most four chunks per worker.
func (p *Pool) partition(n int) []span {
	if n <= 0 {
		return nil
	}
	chunks := (n + p.Grain() - 1) / p.Grain()
	if limit := p.Workers() * 4; chunks > limit {
		chunks = limit
	}
	if chunks < 1 {
		chunks = 1
	}

	spans := make([]span, chunks)
	size, rem := n/chunks, n%chunks
	lo := 0
	for c := range spans {
		hi := lo + size
		if c < rem {
			hi++
		}
		spans[c] = span{lo: lo, hi: hi}
		lo = hi
	}
	return spans
}

// run executes body for every span and returns when all have completed.
// The calling goroutine executes the first span itself. Spans that cannot be
// handed to the pool (nil or closed pool) run inline.
func (p *Pool) run(spans []span, body func(c int, s span)) {
	if len(spans) == 0 {
		return
	}
	if len(spans) == 1 || p == nil {
		for c, s := range spans {
			body(c, s)
		}
		return
	}

	var wg sync.WaitGroup
	for c := 1; c < len(spans); c++ {
		c, s := c, spans[c]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			body(c, s)
		}
		if err := p.Submit(context.Background(), task); err != nil {
			task()
		}
	}
	body(0, spans[0])
	wg.Wait()
}

// For calls body over contiguous sub-ranges covering [0, n) in parallel and
// blocks until every range has been processed. body must only touch the
// indices it is given.
func (p *Pool) For(n int, body func(lo, hi int)) {
	p.run(p.partition(n), func(_ int, s span) {
		body(s.lo, s.hi)
	})
}
