package testutil

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/hupe1980/kernelgo/table"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int64s returns n values uniformly drawn from [lo, hi).
func (r *RNG) Int64s(n int, lo, hi int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int64, n)
	for i := range out {
		out[i] = lo + r.rand.Int63n(hi-lo)
	}
	return out
}

// Uint64s returns n values drawn from the full uint64 range.
func (r *RNG) Uint64s(n int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, n)
	for i := range out {
		out[i] = r.rand.Uint64()
	}
	return out
}

// Float64s returns n values uniformly drawn from [lo, hi).
func (r *RNG) Float64s(n int, lo, hi float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	span := hi - lo
	for i := range out {
		out[i] = lo + r.rand.Float64()*span
	}
	return out
}

// Bools returns n values that are true with probability p.
func (r *RNG) Bools(n int, p float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]bool, n)
	for i := range out {
		out[i] = r.rand.Float64() < p
	}
	return out
}

// Arange returns [start, start+step, ...) with n elements.
func Arange(start, step int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = start + int64(i)*step
	}
	return out
}

// MustPut uploads data into tbl and returns the new array's name.
func MustPut(tb testing.TB, tbl *table.Table, data any) string {
	tb.Helper()
	a, err := tbl.Put(data)
	if err != nil {
		tb.Fatalf("put %T: %v", data, err)
	}
	return a.Name()
}
