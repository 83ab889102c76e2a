package kernels

import (
	"math/bits"

	"github.com/hupe1980/kernelgo/internal/parallel"
)

// Popcount counts the set bits of each element.
func Popcount[T Integer](p *parallel.Pool, dst, src []T) {
	Map(p, dst, src, func(x T) T { return T(bits.OnesCount64(uint64(x))) })
}

// Clz counts the leading zero bits of each element's 64-bit pattern.
func Clz[T Integer](p *parallel.Pool, dst, src []T) {
	Map(p, dst, src, func(x T) T { return T(bits.LeadingZeros64(uint64(x))) })
}

// Ctz counts the trailing zero bits of each element's 64-bit pattern.
// Ctz(0) is 64.
func Ctz[T Integer](p *parallel.Pool, dst, src []T) {
	Map(p, dst, src, func(x T) T { return T(bits.TrailingZeros64(uint64(x))) })
}

// Parity is popcount(x) mod 2.
func Parity[T Integer](p *parallel.Pool, dst, src []T) {
	Map(p, dst, src, func(x T) T { return T(bits.OnesCount64(uint64(x)) & 1) })
}
