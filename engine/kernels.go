package engine

import (
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/kernels"
	"github.com/hupe1980/kernelgo/internal/parallel"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/table"
)

// operand is a resolved request operand.
type operand struct {
	arr    *table.Array
	scalar dtype.Scalar
}

func (o operand) dt() dtype.DType {
	if o.arr != nil {
		return o.arr.DType()
	}
	return o.scalar.DType
}

// call carries one kernel invocation.
type call struct {
	e    *Engine
	op   string
	args []operand
	n    int

	res    *resource.Reservation
	allocs []*table.Array
}

func (c *call) pool() *parallel.Pool { return c.e.pool }

// alloc creates an unpublished output array, drawing on the guard's
// reservation when there is one.
func (c *call) alloc(dt dtype.DType) (*table.Array, error) {
	var opts []table.AllocOption
	if c.res != nil {
		opts = append(opts, table.WithReservation(c.res))
	}
	a, err := c.e.table.Allocate(dt, c.n, opts...)
	if err != nil {
		return nil, err
	}
	c.allocs = append(c.allocs, a)
	return a, nil
}

// outcome is what a kernel produced. A pair lists the auxiliary array first.
type outcome struct {
	arrays []*table.Array
}

func single(a *table.Array) outcome { return outcome{arrays: []*table.Array{a}} }

func pair(aux, primary *table.Array) outcome {
	return outcome{arrays: []*table.Array{aux, primary}}
}

type kernel func(c *call) (outcome, error)

func vec[T dtype.Element](o operand) []T {
	return table.Values[T](o.arr)
}

func source[T dtype.Element](o operand) kernels.Source[T] {
	if o.arr == nil {
		v, _ := dtype.Value[T](o.scalar)
		return kernels.Fixed(v)
	}
	return kernels.Vector(table.Values[T](o.arr))
}

func unaryKernel[T, U dtype.Element](fn func(p *parallel.Pool, dst []U, src []T)) kernel {
	return func(c *call) (outcome, error) {
		out, err := c.alloc(dtype.Of[U]())
		if err != nil {
			return outcome{}, err
		}
		fn(c.pool(), table.Values[U](out), vec[T](c.args[0]))
		return single(out), nil
	}
}

func mathKernel[T kernels.Number](fn func(float64) float64) kernel {
	return unaryKernel(func(p *parallel.Pool, dst, src []T) {
		kernels.Apply(p, dst, src, fn)
	})
}

// boolScanKernel widens the input to Int64 and scans the copy in place, so the
// widened copy becomes the result.
func boolScanKernel(scan func(p *parallel.Pool, dst, src []int64)) kernel {
	return func(c *call) (outcome, error) {
		out, err := c.alloc(dtype.Int64)
		if err != nil {
			return outcome{}, err
		}
		work := table.Values[int64](out)
		kernels.BoolToInt(c.pool(), work, vec[bool](c.args[0]))
		scan(c.pool(), work, work)
		return single(out), nil
	}
}

func hash64Kernel[T kernels.Number]() kernel {
	return func(c *call) (outcome, error) {
		out, err := c.alloc(dtype.UInt64)
		if err != nil {
			return outcome{}, err
		}
		kernels.Hash64(c.pool(), c.e.key, table.Values[uint64](out), vec[T](c.args[0]))
		return single(out), nil
	}
}

// hash128Kernel allocates the low half first so it receives the lower id.
func hash128Kernel[T kernels.Number]() kernel {
	return func(c *call) (outcome, error) {
		lo, err := c.alloc(dtype.UInt64)
		if err != nil {
			return outcome{}, err
		}
		hi, err := c.alloc(dtype.UInt64)
		if err != nil {
			return outcome{}, err
		}
		kernels.Hash128(c.pool(), c.e.key, table.Values[uint64](lo), table.Values[uint64](hi), vec[T](c.args[0]))
		return pair(lo, hi), nil
	}
}

func binaryKernel[A, B kernels.Number](fn func(p *parallel.Pool, dst []float64, a kernels.Source[A], b kernels.Source[B])) kernel {
	return func(c *call) (outcome, error) {
		out, err := c.alloc(dtype.Float64)
		if err != nil {
			return outcome{}, err
		}
		fn(c.pool(), table.Values[float64](out), source[A](c.args[0]), source[B](c.args[1]))
		return single(out), nil
	}
}

func whereKernel[T dtype.Element]() kernel {
	return func(c *call) (outcome, error) {
		out, err := c.alloc(dtype.Of[T]())
		if err != nil {
			return outcome{}, err
		}
		kernels.Where(c.pool(), table.Values[T](out), vec[bool](c.args[0]), source[T](c.args[1]), source[T](c.args[2]))
		return single(out), nil
	}
}
