package kernels

import (
	"github.com/hupe1980/kernelgo/internal/hash"
	"github.com/hupe1980/kernelgo/internal/parallel"
)

// Hash64 writes the keyed 64-bit hash of each element's bit pattern.
func Hash64[T Number](p *parallel.Pool, key hash.Key, dst []uint64, src []T) {
	toBits := bitsFunc[T]()
	Map(p, dst, src, func(x T) uint64 {
		return key.Sum64(toBits(x))
	})
}

// Hash128 writes the low and high halves of the keyed 128-bit hash of each
// element's bit pattern.
func Hash128[T Number](p *parallel.Pool, key hash.Key, lo, hi []uint64, src []T) {
	toBits := bitsFunc[T]()
	lo, hi = lo[:len(src)], hi[:len(src)]
	p.For(len(src), func(start, end int) {
		for i := start; i < end; i++ {
			lo[i], hi[i] = key.Sum128(toBits(src[i]))
		}
	})
}
