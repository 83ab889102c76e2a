package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/hash"
	"github.com/hupe1980/kernelgo/internal/parallel"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/table"
)

// Engine executes kernel requests against a table.
type Engine struct {
	table *table.Table
	rc    *resource.Controller
	key   hash.Key

	pool    *parallel.Pool
	ownPool bool
	workers int
	grain   int

	logger  *slog.Logger
	metrics MetricsObserver
}

// New creates an engine reading from and publishing into tbl.
func New(tbl *table.Table, opts ...Option) *Engine {
	e := &Engine{
		table:   tbl,
		key:     hash.DefaultKey,
		metrics: &NoopMetricsObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = parallel.NewPool(e.workers, e.grain)
		e.ownPool = true
	}
	return e
}

// Table returns the engine's table.
func (e *Engine) Table() *table.Table { return e.table }

// Pool returns the worker pool kernels run on.
func (e *Engine) Pool() *parallel.Pool { return e.pool }

// Close stops the engine's own worker pool.
func (e *Engine) Close() {
	if e.ownPool {
		e.pool.Close()
	}
}

// Result lists the arrays published by a request, auxiliary outputs first.
type Result struct {
	Arrays []*table.Array
}

// Descriptor joins the creation descriptors of all outputs with "+".
func (r Result) Descriptor() string {
	parts := make([]string, len(r.Arrays))
	for i, a := range r.Arrays {
		parts[i] = a.Descriptor()
	}
	return strings.Join(parts, "+")
}

// Names returns the output names in publication order.
func (r Result) Names() []string {
	names := make([]string, len(r.Arrays))
	for i, a := range r.Arrays {
		names[i] = a.Name()
	}
	return names
}

// Execute runs one request. On success every output is published; on error
// the table is left as it was.
//
// The context is checked before dispatch. Once a kernel starts it runs to
// completion.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, req)
	e.metrics.OnExecute(req.Op, time.Since(start), err)

	if e.logger != nil {
		if err != nil {
			e.logger.Debug("request failed", "request", req.String(), "error", err)
		} else {
			e.logger.Debug("request executed", "request", req.String(), "result", res.Descriptor(), "duration", time.Since(start))
		}
	}
	return res, err
}

func (e *Engine) execute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	arity, known := arities[req.Op]
	if !known {
		return Result{}, invalidf(req.Op, "unknown operation")
	}
	if len(req.Operands) != arity {
		return Result{}, invalidf(req.Op, "expects %d operands, got %d", arity, len(req.Operands))
	}
	shape := ShapeOf(req.Operands)
	if shape == ShapeInvalid {
		return Result{}, invalidf(req.Op, "unsupported operand layout")
	}

	args, err := e.resolve(req)
	if err != nil {
		return Result{}, err
	}

	// Every valid shape has at least one vector; they must agree in length.
	n := -1
	sizes := make([]int, 0, len(args))
	mismatch := false
	for _, a := range args {
		if a.arr == nil {
			continue
		}
		sizes = append(sizes, a.arr.Len())
		switch {
		case n < 0:
			n = a.arr.Len()
		case a.arr.Len() != n:
			mismatch = true
		}
	}
	if mismatch {
		return Result{}, &ErrSizeMismatch{Op: req.Op, Sizes: sizes}
	}

	dts := make([]dtype.DType, len(args))
	for i, a := range args {
		dts[i] = a.dt()
	}
	ent, ok := lookup(req.Op, dts)
	if !ok {
		return Result{}, &ErrNotImplemented{Op: req.Op, DTypes: dts}
	}

	c := &call{e: e, op: req.Op, args: args, n: n}
	if ent.projected != nil {
		res, err := e.guard(req.Op, ent.projected(n))
		if err != nil {
			return Result{}, err
		}
		c.res = res
		defer res.Release()
	}

	out, err := ent.run(c)
	if err != nil {
		e.table.Discard(c.allocs...)
		return Result{}, err
	}
	if err := e.table.Publish(out.arrays...); err != nil {
		e.table.Discard(c.allocs...)
		return Result{}, err
	}
	return Result{Arrays: out.arrays}, nil
}

func (e *Engine) resolve(req Request) ([]operand, error) {
	args := make([]operand, len(req.Operands))
	for i, o := range req.Operands {
		if o.IsScalar() {
			if !o.Scalar.DType.Valid() {
				return nil, &dtype.ErrUnrecognizedType{Name: o.Scalar.DType.String()}
			}
			args[i] = operand{scalar: *o.Scalar}
			continue
		}
		a, err := e.table.Resolve(o.Name)
		if err != nil {
			return nil, err
		}
		args[i] = operand{arr: a}
	}
	return args, nil
}
