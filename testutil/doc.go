// Package testutil provides helpers for kernelgo tests and benchmarks.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Arrays
//
//	rng := testutil.NewRNG(seed)
//	ints := rng.Int64s(1000, -50, 50)
//	floats := rng.Float64s(1000, 0, 1)
//	mask := rng.Bools(1000, 0.5)
//
// # Table Fixtures
//
//	tbl := table.New()
//	name := testutil.MustPut(t, tbl, ints)
package testutil
