package kernelgo_bench_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/kernelgo"
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/engine"
	"github.com/hupe1980/kernelgo/testutil"
)

var sizes = []int{1 << 10, 1 << 16, 1 << 20}

// newEngine uploads three registered operands: "ints", "floats" and "mask".
func newEngine(b *testing.B, n int, opts ...kernelgo.Option) *kernelgo.Engine {
	b.Helper()
	e := kernelgo.New(opts...)
	b.Cleanup(func() { _ = e.Close() })

	rng := testutil.NewRNG(42)
	put := func(userName string, dt dtype.DType, values any) {
		desc, err := e.Create(dt, values)
		if err != nil {
			b.Fatal(err)
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(desc, "created "), ":")
		if err := e.Register(name, userName); err != nil {
			b.Fatal(err)
		}
	}
	put("ints", dtype.Int64, rng.Int64s(n, -1000, 1000))
	put("floats", dtype.Float64, rng.Float64s(n, 0.01, 1))
	put("mask", dtype.Bool, rng.Bools(n, 0.5))
	return e
}

// run executes op b.N times, clearing outputs so memory stays flat.
func run(b *testing.B, e *kernelgo.Engine, op string, operands ...engine.Operand) {
	b.Helper()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Execute(ctx, op, operands...); err != nil {
			b.Fatal(err)
		}
		e.Clear()
	}
}

func BenchmarkUnary(b *testing.B) {
	for _, n := range sizes {
		for _, op := range []string{"exp", "sin", "abs", "isnan"} {
			b.Run(fmt.Sprintf("%s/n=%d", op, n), func(b *testing.B) {
				e := newEngine(b, n)
				b.SetBytes(int64(n) * 8)
				run(b, e, op, engine.Array("floats"))
			})
		}
	}
}

func BenchmarkBits(b *testing.B) {
	for _, n := range sizes {
		for _, op := range []string{"popcount", "clz", "parity"} {
			b.Run(fmt.Sprintf("%s/n=%d", op, n), func(b *testing.B) {
				e := newEngine(b, n)
				b.SetBytes(int64(n) * 8)
				run(b, e, op, engine.Array("ints"))
			})
		}
	}
}

// BenchmarkScan compares the two-pass parallel scan across worker counts.
func BenchmarkScan(b *testing.B) {
	for _, n := range sizes {
		for _, workers := range []int{1, 4, 8} {
			b.Run(fmt.Sprintf("cumsum/n=%d/workers=%d", n, workers), func(b *testing.B) {
				e := newEngine(b, n, kernelgo.WithWorkers(workers, 0))
				b.SetBytes(int64(n) * 8)
				run(b, e, "cumsum", engine.Array("ints"))
			})
		}
	}
}

func BenchmarkHash(b *testing.B) {
	for _, n := range sizes {
		for _, op := range []string{"hash64", "hash128"} {
			b.Run(fmt.Sprintf("%s/n=%d", op, n), func(b *testing.B) {
				e := newEngine(b, n)
				b.SetBytes(int64(n) * 8)
				run(b, e, op, engine.Array("ints"))
			})
		}
	}
}

func BenchmarkBinary(b *testing.B) {
	for _, n := range sizes {
		b.Run(fmt.Sprintf("arctan2/vv/n=%d", n), func(b *testing.B) {
			e := newEngine(b, n)
			b.SetBytes(int64(n) * 16)
			run(b, e, "arctan2", engine.Array("floats"), engine.Array("ints"))
		})
		b.Run(fmt.Sprintf("fmod/vs/n=%d", n), func(b *testing.B) {
			e := newEngine(b, n)
			b.SetBytes(int64(n) * 8)
			run(b, e, "fmod", engine.Array("floats"), engine.Value(dtype.Float(0.3)))
		})
	}
}

func BenchmarkWhere(b *testing.B) {
	for _, n := range sizes {
		b.Run(fmt.Sprintf("vv/n=%d", n), func(b *testing.B) {
			e := newEngine(b, n)
			b.SetBytes(int64(n) * 17)
			run(b, e, "where", engine.Array("mask"), engine.Array("floats"), engine.Array("floats"))
		})
		b.Run(fmt.Sprintf("ss/n=%d", n), func(b *testing.B) {
			e := newEngine(b, n)
			b.SetBytes(int64(n))
			run(b, e, "where", engine.Array("mask"), engine.Value(dtype.Int(1)), engine.Value(dtype.Int(0)))
		})
	}
}
