package engine

import (
	"log/slog"

	"github.com/hupe1980/kernelgo/internal/hash"
	"github.com/hupe1980/kernelgo/internal/parallel"
	"github.com/hupe1980/kernelgo/internal/resource"
)

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithResourceController sets the controller that guards scan and hash
// allocations. It should be the controller the table charges.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) {
		e.rc = rc
	}
}

// WithPool runs kernels on an existing pool. The engine does not close it.
func WithPool(p *parallel.Pool) Option {
	return func(e *Engine) {
		e.pool = p
	}
}

// WithWorkers sets the worker count and chunk grain of the engine's own pool.
// Ignored when WithPool is given.
func WithWorkers(workers, grain int) Option {
	return func(e *Engine) {
		e.workers = workers
		e.grain = grain
	}
}

// WithHashKey sets the key of hash64 and hash128.
func WithHashKey(k hash.Key) Option {
	return func(e *Engine) {
		e.key = k
	}
}

// WithMetricsObserver sets the metrics observer for the engine.
func WithMetricsObserver(observer MetricsObserver) Option {
	return func(e *Engine) {
		if observer != nil {
			e.metrics = observer
		}
	}
}
