package kernels

import (
	"math"

	"github.com/hupe1980/kernelgo/internal/parallel"
)

var floatFuncs = map[string]func(float64) float64{
	"log":     math.Log,
	"exp":     math.Exp,
	"sin":     math.Sin,
	"cos":     math.Cos,
	"tan":     math.Tan,
	"arcsin":  math.Asin,
	"arccos":  math.Acos,
	"arctan":  math.Atan,
	"sinh":    math.Sinh,
	"cosh":    math.Cosh,
	"tanh":    math.Tanh,
	"arcsinh": math.Asinh,
	"arccosh": math.Acosh,
	"arctanh": math.Atanh,
}

// FloatFunc returns the float64 function behind a named math operation.
func FloatFunc(name string) (func(float64) float64, bool) {
	fn, ok := floatFuncs[name]
	return fn, ok
}

// FloatFuncNames lists the operations served by Apply.
func FloatFuncNames() []string {
	names := make([]string, 0, len(floatFuncs))
	for name := range floatFuncs {
		names = append(names, name)
	}
	return names
}

// Map writes fn(src[i]) to dst[i] for every index, in parallel.
func Map[T, U any](p *parallel.Pool, dst []U, src []T, fn func(T) U) {
	dst = dst[:len(src)]
	p.For(len(src), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = fn(src[i])
		}
	})
}

// Apply evaluates fn in float64 and casts the result back to the element type.
// Integer results outside the representable range are implementation-defined,
// as for any Go float-to-integer conversion.
func Apply[T Number](p *parallel.Pool, dst, src []T, fn func(float64) float64) {
	Map(p, dst, src, func(x T) T {
		return T(fn(float64(x)))
	})
}

// Abs computes |x| exactly for every element type.
func Abs[T Number](p *parallel.Pool, dst, src []T) {
	if isFloat[T]() {
		Map(p, dst, src, func(x T) T { return T(math.Abs(float64(x))) })
		return
	}
	Map(p, dst, src, func(x T) T {
		if x < 0 {
			return -x
		}
		return x
	})
}

// IsNaN marks NaN elements.
func IsNaN(p *parallel.Pool, dst []bool, src []float64) {
	Map(p, dst, src, math.IsNaN)
}
