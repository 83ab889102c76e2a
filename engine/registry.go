package engine

import (
	"slices"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/kernels"
)

// entry is a registered kernel.
type entry struct {
	run kernel

	// projected returns the bytes the memory guard admits for a domain of n
	// elements. nil means the operation is not guarded.
	projected func(n int) int64
}

type key struct {
	op  string
	dts [3]dtype.DType
}

var (
	registry = make(map[key]entry)
	arities  = make(map[string]int)
)

func register(op string, e entry, dts ...dtype.DType) {
	k := key{op: op}
	copy(k.dts[:], dts)
	if _, dup := registry[k]; dup {
		panic("engine: duplicate kernel for " + op)
	}
	if n, ok := arities[op]; ok && n != len(dts) {
		panic("engine: inconsistent arity for " + op)
	}
	registry[k] = e
	arities[op] = len(dts)
}

func lookup(op string, dts []dtype.DType) (entry, bool) {
	k := key{op: op}
	copy(k.dts[:], dts)
	e, ok := registry[k]
	return e, ok
}

// Ops returns the names of all registered operations, sorted.
func Ops() []string {
	ops := make([]string, 0, len(arities))
	for op := range arities {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Supported reports whether a kernel is registered for op and the operand dtypes.
func Supported(op string, dts ...dtype.DType) bool {
	if len(dts) != arities[op] {
		return false
	}
	_, ok := lookup(op, dts)
	return ok
}

// outputs projects n elements of dt in each of count arrays.
func outputs(dt dtype.DType, count int) func(n int) int64 {
	return func(n int) int64 {
		return dt.Size() * int64(n) * int64(count)
	}
}

func init() {
	registerMath()
	registerBits()
	registerScans()
	registerHashes()
	registerBinary()
	registerWhere()
}

func registerMath() {
	for _, name := range kernels.FloatFuncNames() {
		fn, _ := kernels.FloatFunc(name)
		register(name, entry{run: mathKernel[int64](fn)}, dtype.Int64)
		register(name, entry{run: mathKernel[uint64](fn)}, dtype.UInt64)
		register(name, entry{run: mathKernel[float64](fn)}, dtype.Float64)
	}

	register("abs", entry{run: unaryKernel(kernels.Abs[int64])}, dtype.Int64)
	register("abs", entry{run: unaryKernel(kernels.Abs[uint64])}, dtype.UInt64)
	register("abs", entry{run: unaryKernel(kernels.Abs[float64])}, dtype.Float64)

	register("isnan", entry{run: unaryKernel(kernels.IsNaN)}, dtype.Float64)
}

func registerBits() {
	register("popcount", entry{run: unaryKernel(kernels.Popcount[int64])}, dtype.Int64)
	register("popcount", entry{run: unaryKernel(kernels.Popcount[uint64])}, dtype.UInt64)
	register("clz", entry{run: unaryKernel(kernels.Clz[int64])}, dtype.Int64)
	register("clz", entry{run: unaryKernel(kernels.Clz[uint64])}, dtype.UInt64)
	register("ctz", entry{run: unaryKernel(kernels.Ctz[int64])}, dtype.Int64)
	register("ctz", entry{run: unaryKernel(kernels.Ctz[uint64])}, dtype.UInt64)
	register("parity", entry{run: unaryKernel(kernels.Parity[int64])}, dtype.Int64)
	register("parity", entry{run: unaryKernel(kernels.Parity[uint64])}, dtype.UInt64)
}

func registerScans() {
	register("cumsum", entry{run: unaryKernel(kernels.CumSum[int64]), projected: outputs(dtype.Int64, 1)}, dtype.Int64)
	register("cumsum", entry{run: unaryKernel(kernels.CumSum[uint64]), projected: outputs(dtype.UInt64, 1)}, dtype.UInt64)
	register("cumsum", entry{run: unaryKernel(kernels.CumSum[float64]), projected: outputs(dtype.Float64, 1)}, dtype.Float64)
	register("cumsum", entry{run: boolScanKernel(kernels.CumSum[int64]), projected: outputs(dtype.Int64, 1)}, dtype.Bool)

	register("cumprod", entry{run: unaryKernel(kernels.CumProd[int64]), projected: outputs(dtype.Int64, 1)}, dtype.Int64)
	register("cumprod", entry{run: unaryKernel(kernels.CumProd[uint64]), projected: outputs(dtype.UInt64, 1)}, dtype.UInt64)
	register("cumprod", entry{run: unaryKernel(kernels.CumProd[float64]), projected: outputs(dtype.Float64, 1)}, dtype.Float64)
	register("cumprod", entry{run: boolScanKernel(kernels.CumProd[int64]), projected: outputs(dtype.Int64, 1)}, dtype.Bool)
}

func registerHashes() {
	register("hash64", entry{run: hash64Kernel[int64](), projected: outputs(dtype.UInt64, 1)}, dtype.Int64)
	register("hash64", entry{run: hash64Kernel[uint64](), projected: outputs(dtype.UInt64, 1)}, dtype.UInt64)
	register("hash64", entry{run: hash64Kernel[float64](), projected: outputs(dtype.UInt64, 1)}, dtype.Float64)

	register("hash128", entry{run: hash128Kernel[int64](), projected: outputs(dtype.UInt64, 2)}, dtype.Int64)
	register("hash128", entry{run: hash128Kernel[uint64](), projected: outputs(dtype.UInt64, 2)}, dtype.UInt64)
	register("hash128", entry{run: hash128Kernel[float64](), projected: outputs(dtype.UInt64, 2)}, dtype.Float64)
}

func registerBinary() {
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[int64, int64])}, dtype.Int64, dtype.Int64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[int64, uint64])}, dtype.Int64, dtype.UInt64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[int64, float64])}, dtype.Int64, dtype.Float64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[uint64, int64])}, dtype.UInt64, dtype.Int64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[uint64, uint64])}, dtype.UInt64, dtype.UInt64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[uint64, float64])}, dtype.UInt64, dtype.Float64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[float64, int64])}, dtype.Float64, dtype.Int64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[float64, uint64])}, dtype.Float64, dtype.UInt64)
	register("arctan2", entry{run: binaryKernel(kernels.Arctan2[float64, float64])}, dtype.Float64, dtype.Float64)

	// fmod needs at least one float operand.
	register("fmod", entry{run: binaryKernel(kernels.Fmod[int64, float64])}, dtype.Int64, dtype.Float64)
	register("fmod", entry{run: binaryKernel(kernels.Fmod[uint64, float64])}, dtype.UInt64, dtype.Float64)
	register("fmod", entry{run: binaryKernel(kernels.Fmod[float64, int64])}, dtype.Float64, dtype.Int64)
	register("fmod", entry{run: binaryKernel(kernels.Fmod[float64, uint64])}, dtype.Float64, dtype.UInt64)
	register("fmod", entry{run: binaryKernel(kernels.Fmod[float64, float64])}, dtype.Float64, dtype.Float64)
}

func registerWhere() {
	register("where", entry{run: whereKernel[int64]()}, dtype.Bool, dtype.Int64, dtype.Int64)
	register("where", entry{run: whereKernel[uint64]()}, dtype.Bool, dtype.UInt64, dtype.UInt64)
	register("where", entry{run: whereKernel[float64]()}, dtype.Bool, dtype.Float64, dtype.Float64)
	register("where", entry{run: whereKernel[bool]()}, dtype.Bool, dtype.Bool, dtype.Bool)
}
