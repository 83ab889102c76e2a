package kernels

import "github.com/hupe1980/kernelgo/internal/parallel"

// CumSum computes the inclusive prefix sum. Integer sums wrap on overflow.
func CumSum[T Number](p *parallel.Pool, dst, src []T) {
	parallel.Scan(p, dst, src, func(a, b T) T { return a + b })
}

// CumProd computes the inclusive prefix product. Integer products wrap on overflow.
func CumProd[T Number](p *parallel.Pool, dst, src []T) {
	parallel.Scan(p, dst, src, func(a, b T) T { return a * b })
}

// BoolToInt widens booleans to 0/1 integers ahead of a scan.
func BoolToInt(p *parallel.Pool, dst []int64, src []bool) {
	Map(p, dst, src, func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	})
}
