package kernels

import "github.com/hupe1980/kernelgo/internal/parallel"

// Where selects a[i] where cond[i] is true and b[i] otherwise, over the
// condition's domain. a and b are vectors of len(cond) or fixed values.
func Where[T any](p *parallel.Pool, dst []T, cond []bool, a, b Source[T]) {
	dst = dst[:len(cond)]
	p.For(len(cond), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if cond[i] {
				dst[i] = a.At(i)
			} else {
				dst[i] = b.At(i)
			}
		}
	})
}
