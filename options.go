package kernelgo

import (
	"log/slog"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/codec"
	"github.com/hupe1980/kernelgo/persistence"
)

type options struct {
	memoryLimit      int64
	ioLimit          int64
	backgroundJobs   int64
	workers          int
	grain            int
	hashKey          [2]uint64
	hashKeySet       bool
	metricsCollector MetricsCollector
	logger           *Logger
	store            blobstore.BlobStore
	compression      persistence.Compression
	codec            codec.Codec
}

// Option configures an Engine.
type Option func(*options)

// WithMemoryLimit sets the byte budget of the array table. Requests whose
// projected allocation would exceed it fail with an out-of-memory error.
// 0 disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithWorkers sets the number of kernel worker goroutines and the minimum
// number of elements per chunk. Values <= 0 keep the defaults
// (GOMAXPROCS workers, 16Ki elements).
func WithWorkers(workers, grain int) Option {
	return func(o *options) {
		o.workers = workers
		o.grain = grain
	}
}

// WithHashKey sets the 128-bit key used by hash64 and hash128.
func WithHashKey(k0, k1 uint64) Option {
	return func(o *options) {
		o.hashKey = [2]uint64{k0, k1}
		o.hashKeySet = true
	}
}

// WithBlobStore enables Save and Load against store.
//
// Example with a local directory:
//
//	e := kernelgo.New(kernelgo.WithBlobStore(blobstore.NewLocalStore("./snapshots")))
//	_, _ = e.Save(ctx, "nightly")
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCompression sets the block compression of saved snapshots.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec configures the codec used for snapshot manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithIOLimit throttles snapshot IO to bytesPerSec. 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithBackgroundJobs sets how many snapshot saves and loads may run at once.
func WithBackgroundJobs(n int64) Option {
	return func(o *options) {
		o.backgroundJobs = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &kernelgo.BasicMetricsCollector{}
//	e := kernelgo.New(kernelgo.WithMetricsCollector(metrics))
//	// ... use e ...
//	stats := metrics.GetStats()
//	fmt.Printf("Requests: %d, Avg latency: %dns\n", stats.ExecuteCount, stats.ExecuteAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger on stderr with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(nil, level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      persistence.CompressionLZ4,
		codec:            codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
