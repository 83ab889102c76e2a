package kernels

import "math"

// Number is the set of element types accepted by arithmetic kernels.
type Number interface {
	~int64 | ~uint64 | ~float64
}

// Integer is the set of element types accepted by bit kernels.
type Integer interface {
	~int64 | ~uint64
}

// Source is a kernel operand that is either a vector read per index or a
// single value held fixed over the whole domain.
type Source[T any] struct {
	vec   []T
	val   T
	fixed bool
}

// Vector returns a Source reading v[i] at index i.
func Vector[T any](v []T) Source[T] {
	return Source[T]{vec: v}
}

// Fixed returns a Source yielding v at every index.
func Fixed[T any](v T) Source[T] {
	return Source[T]{val: v, fixed: true}
}

// At returns the operand value at index i.
func (s Source[T]) At(i int) T {
	if s.fixed {
		return s.val
	}
	return s.vec[i]
}

// IsFixed reports whether the source is a broadcast scalar.
func (s Source[T]) IsFixed() bool { return s.fixed }

// Len returns the vector length, or -1 for a fixed value.
func (s Source[T]) Len() int {
	if s.fixed {
		return -1
	}
	return len(s.vec)
}

// bitsFunc returns the function mapping an element to its 64-bit pattern.
// Floats use their IEEE-754 encoding, integers their two's complement bits.
func bitsFunc[T Number]() func(T) uint64 {
	var zero T
	if _, ok := any(zero).(float64); ok {
		return func(x T) uint64 { return math.Float64bits(float64(x)) }
	}
	return func(x T) uint64 { return uint64(x) }
}

func isFloat[T Number]() bool {
	var zero T
	_, ok := any(zero).(float64)
	return ok
}
