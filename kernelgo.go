package kernelgo

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/engine"
	"github.com/hupe1980/kernelgo/internal/conv"
	"github.com/hupe1980/kernelgo/internal/hash"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/internal/sysinfo"
	"github.com/hupe1980/kernelgo/persistence"
	"github.com/hupe1980/kernelgo/table"
)

// Engine is the embeddable kernel service: a shared array table, the kernel
// dispatcher running over it and, when a blob store is configured, snapshot
// persistence.
//
// Engine is safe for concurrent use.
type Engine struct {
	opts options

	rc        *resource.Controller
	table     *table.Table
	engine    *engine.Engine
	snapshots *persistence.Snapshotter

	logger  *Logger
	metrics MetricsCollector

	closed atomic.Bool
}

// New creates an Engine.
func New(optFns ...Option) *Engine {
	o := applyOptions(optFns)

	e := &Engine{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}

	e.rc = resource.NewController(resource.Config{
		MemoryLimitBytes:     o.memoryLimit,
		MaxBackgroundWorkers: o.backgroundJobs,
		IOLimitBytesPerSec:   o.ioLimit,
	})
	e.table = table.New(
		table.WithController(e.rc),
		table.WithLogger(o.logger.Logger),
	)

	engineOpts := []engine.Option{
		engine.WithResourceController(e.rc),
		engine.WithWorkers(o.workers, o.grain),
		engine.WithMetricsObserver(observer{e: e}),
	}
	if o.hashKeySet {
		engineOpts = append(engineOpts, engine.WithHashKey(hash.Key{K0: o.hashKey[0], K1: o.hashKey[1]}))
	}
	e.engine = engine.New(e.table, engineOpts...)

	if o.store != nil {
		e.snapshots = persistence.New(o.store,
			persistence.WithCodec(o.codec),
			persistence.WithCompression(o.compression),
			persistence.WithController(e.rc),
			persistence.WithLogger(o.logger.Logger),
		)
	}
	return e
}

// Table returns the underlying array table.
func (e *Engine) Table() *table.Table { return e.table }

// Execute runs op over operands and returns the creation descriptor of the
// result, e.g. "created id_7:float64:1000". hash128 yields two descriptors
// joined by "+", auxiliary first.
func (e *Engine) Execute(ctx context.Context, op string, operands ...engine.Operand) (string, error) {
	res, err := e.ExecuteRequest(ctx, engine.NewRequest(op, operands...))
	if err != nil {
		return "", err
	}
	return res.Descriptor(), nil
}

// ExecuteRequest runs req and returns the published outputs.
func (e *Engine) ExecuteRequest(ctx context.Context, req engine.Request) (engine.Result, error) {
	if e.closed.Load() {
		return engine.Result{}, ErrClosed
	}
	res, err := e.engine.Execute(ctx, req)
	descriptor := ""
	if err == nil {
		descriptor = res.Descriptor()
	}
	e.logger.LogExecute(ctx, req.String(), descriptor, err)
	return res, err
}

// Create uploads values as a new array of type dt and returns its descriptor.
//
// values is either a typed slice matching dt ([]int64, []uint64, []float64,
// []bool) or a []any of numbers, booleans or numeric strings as produced by a
// JSON decoder. Creation is subject to the memory limit.
func (e *Engine) Create(dt dtype.DType, values any) (string, error) {
	if e.closed.Load() {
		return "", ErrClosed
	}
	data, err := toData(dt, values)
	if err != nil {
		return "", err
	}
	a, err := e.table.Put(data)
	if err != nil {
		return "", err
	}
	return a.Descriptor(), nil
}

// Values returns a copy of the named array's elements as []int64, []uint64,
// []float64 or []bool.
func (e *Engine) Values(name string) (any, error) {
	a, err := e.table.Resolve(name)
	if err != nil {
		return nil, err
	}
	switch a.DType() {
	case dtype.Int64:
		return slices.Clone(table.Values[int64](a)), nil
	case dtype.UInt64:
		return slices.Clone(table.Values[uint64](a)), nil
	case dtype.Float64:
		return slices.Clone(table.Values[float64](a)), nil
	case dtype.Bool:
		return slices.Clone(table.Values[bool](a)), nil
	default:
		return nil, &dtype.ErrUnrecognizedType{Name: a.DType().String()}
	}
}

// Register renames name to userName and protects it from Clear.
func (e *Engine) Register(name, userName string) error {
	return e.table.Register(name, userName)
}

// Unregister removes the protection of a registered array.
func (e *Engine) Unregister(name string) error {
	return e.table.Unregister(name)
}

// Attach returns the descriptor of a registered array.
func (e *Engine) Attach(name string) (string, error) {
	return e.table.Attach(name)
}

// IsRegistered reports whether name is a registered array.
func (e *Engine) IsRegistered(name string) bool {
	return e.table.IsRegistered(name)
}

// ListRegistry returns the registered names, sorted.
func (e *Engine) ListRegistry() []string {
	return e.table.ListRegistry()
}

// List returns every array name, sorted.
func (e *Engine) List() []string {
	return e.table.List()
}

// Info returns the metadata of an array.
func (e *Engine) Info(name string) (table.Info, error) {
	return e.table.Info(name)
}

// Describe returns the creation descriptor of an array.
func (e *Engine) Describe(name string) (string, error) {
	return e.table.Describe(name)
}

// Delete removes an array and releases its memory.
func (e *Engine) Delete(name string) error {
	return e.table.Delete(name)
}

// Clear removes every unregistered array and returns how many were removed.
func (e *Engine) Clear() int {
	return e.table.Clear()
}

// MemoryUsage returns the bytes charged against the memory limit: published
// arrays plus in-flight reservations.
func (e *Engine) MemoryUsage() int64 {
	return e.rc.MemoryUsage()
}

// Config describes the running engine.
type Config struct {
	Workers     int          `json:"workers"`
	Grain       int          `json:"grain"`
	MemoryLimit int64        `json:"memoryLimit"`
	Compression string       `json:"compression"`
	Persistence bool         `json:"persistence"`
	Ops         []string     `json:"ops"`
	System      sysinfo.Info `json:"system"`
}

// Config reports the engine configuration together with host information.
func (e *Engine) Config() Config {
	pool := e.engine.Pool()
	return Config{
		Workers:     pool.Workers(),
		Grain:       pool.Grain(),
		MemoryLimit: e.rc.MemoryLimit(),
		Compression: e.opts.compression.String(),
		Persistence: e.snapshots != nil,
		Ops:         engine.Ops(),
		System:      sysinfo.Detect(),
	}
}

// Save writes the named arrays, or every registered array when names is
// empty, as a snapshot under prefix.
func (e *Engine) Save(ctx context.Context, prefix string, names ...string) (*persistence.Manifest, error) {
	if e.snapshots == nil {
		return nil, ErrNoStore
	}
	start := time.Now()
	m, err := e.snapshots.Save(ctx, e.table, prefix, names...)
	e.recordSnapshot(ctx, "save", prefix, m, start, err)
	return m, err
}

// Load publishes the arrays of the snapshot under prefix as registered arrays.
func (e *Engine) Load(ctx context.Context, prefix string) (*persistence.Manifest, error) {
	if e.snapshots == nil {
		return nil, ErrNoStore
	}
	start := time.Now()
	m, err := e.snapshots.Load(ctx, e.table, prefix)
	e.recordSnapshot(ctx, "load", prefix, m, start, err)
	return m, err
}

func (e *Engine) recordSnapshot(ctx context.Context, action, prefix string, m *persistence.Manifest, start time.Time, err error) {
	arrays := 0
	if m != nil {
		arrays = len(m.Arrays)
	}
	e.metrics.RecordSnapshot(action, arrays, time.Since(start), err)
	e.logger.LogSnapshot(ctx, action, prefix, arrays, err)
}

// Close stops the worker pool. Arrays stay readable; new requests fail with
// ErrClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.engine.Close()
	return nil
}

func toData(dt dtype.DType, values any) (any, error) {
	if got, _, ok := table.DataOf(values); ok {
		if got != dt {
			return nil, fmt.Errorf("%w: create: %s values for %s array", engine.ErrInvalidRequest, got, dt)
		}
		return values, nil
	}
	switch v := values.(type) {
	case []any:
		return convertValues(dt, v)
	case nil:
		return convertValues(dt, nil)
	default:
		return nil, &dtype.ErrUnrecognizedType{Name: fmt.Sprintf("%T", values)}
	}
}

func convertValues(dt dtype.DType, values []any) (any, error) {
	switch dt {
	case dtype.Int64:
		return convertEach(values, dt, func(s dtype.Scalar) int64 { return s.I64 })
	case dtype.UInt64:
		return convertEach(values, dt, func(s dtype.Scalar) uint64 { return s.U64 })
	case dtype.Float64:
		return convertEach(values, dt, func(s dtype.Scalar) float64 { return s.F64 })
	case dtype.Bool:
		return convertEach(values, dt, func(s dtype.Scalar) bool { return s.B })
	default:
		return nil, &dtype.ErrUnrecognizedType{Name: dt.String()}
	}
}

func convertEach[T dtype.Element](values []any, dt dtype.DType, get func(dtype.Scalar) T) ([]T, error) {
	out := make([]T, len(values))
	for i, v := range values {
		s, err := scalarOf(v, dt)
		if err != nil {
			return nil, fmt.Errorf("%w: create: element %d: %w", engine.ErrInvalidRequest, i, err)
		}
		out[i] = get(s)
	}
	return out, nil
}

// scalarOf converts one decoded value to a scalar of type dt.
func scalarOf(v any, dt dtype.DType) (dtype.Scalar, error) {
	switch x := v.(type) {
	case string:
		return dtype.ParseScalar(x, dt)
	case bool:
		if dt != dtype.Bool {
			return dtype.Scalar{}, fmt.Errorf("bool value for %s array", dt)
		}
		return dtype.Boolean(x), nil
	case int:
		return scalarOf(float64(x), dt)
	case int64:
		if dt == dtype.Int64 {
			return dtype.Int(x), nil
		}
		return scalarOf(float64(x), dt)
	case uint64:
		if dt == dtype.UInt64 {
			return dtype.Uint(x), nil
		}
		return scalarOf(float64(x), dt)
	case float64:
		switch dt {
		case dtype.Float64:
			return dtype.Float(x), nil
		case dtype.Int64:
			n, err := conv.Float64ToInt(x)
			if err != nil {
				return dtype.Scalar{}, err
			}
			return dtype.Int(int64(n)), nil
		case dtype.UInt64:
			if x < 0 || x >= math.MaxUint64 || x != math.Trunc(x) {
				return dtype.Scalar{}, fmt.Errorf("%w: %v does not fit uint64", conv.ErrOverflow, x)
			}
			return dtype.Uint(uint64(x)), nil
		default:
			return dtype.Scalar{}, fmt.Errorf("number for %s array", dt)
		}
	default:
		return dtype.Scalar{}, fmt.Errorf("unsupported value %T", v)
	}
}
