package parallel

// Scan computes the inclusive prefix scan dst[i] = op(src[0], ..., src[i]).
//
// op must be associative. The scan runs in two passes over the pool's chunks:
// each chunk scans locally, the chunk totals are combined left to right, and
// every chunk after the first folds its left neighbour's running total into
// its elements. dst may alias src. len(dst) must be >= len(src).
func Scan[T any](p *Pool, dst, src []T, op func(a, b T) T) {
	n := len(src)
	if n == 0 {
		return
	}
	dst = dst[:n]

	spans := p.partition(n)
	totals := make([]T, len(spans))

	p.run(spans, func(c int, s span) {
		acc := src[s.lo]
		dst[s.lo] = acc
		for i := s.lo + 1; i < s.hi; i++ {
			acc = op(acc, src[i])
			dst[i] = acc
		}
		totals[c] = acc
	})

	if len(spans) == 1 {
		return
	}

	for c := 1; c < len(totals); c++ {
		totals[c] = op(totals[c-1], totals[c])
	}

	p.run(spans[1:], func(c int, s span) {
		offset := totals[c] // running total of every chunk left of spans[c+1]
		for i := s.lo; i < s.hi; i++ {
			dst[i] = op(offset, dst[i])
		}
	})
}
