package kernels

import (
	"math"

	"github.com/hupe1980/kernelgo/internal/parallel"
)

// Binary evaluates fn(a[i], b[i]) in float64 over len(dst) indices. Either
// operand may be a fixed value.
func Binary[A, B Number](p *parallel.Pool, dst []float64, a Source[A], b Source[B], fn func(x, y float64) float64) {
	p.For(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = fn(float64(a.At(i)), float64(b.At(i)))
		}
	})
}

// Arctan2 computes atan2(a, b) elementwise.
func Arctan2[A, B Number](p *parallel.Pool, dst []float64, a Source[A], b Source[B]) {
	Binary(p, dst, a, b, math.Atan2)
}

// Fmod computes the floating point remainder of a / b elementwise.
func Fmod[A, B Number](p *parallel.Pool, dst []float64, a Source[A], b Source[B]) {
	Binary(p, dst, a, b, math.Mod)
}
