package kernelgo_bench_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/kernelgo"
	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/persistence"
)

func BenchmarkSnapshot(b *testing.B) {
	const n = 1 << 20
	ctx := context.Background()

	for _, c := range []persistence.Compression{persistence.CompressionNone, persistence.CompressionLZ4, persistence.CompressionZSTD} {
		b.Run(fmt.Sprintf("save/%s", c), func(b *testing.B) {
			e := newEngine(b, n, kernelgo.WithBlobStore(blobstore.NewMemoryStore()), kernelgo.WithCompression(c))
			b.SetBytes(n * 17)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Save(ctx, "bench"); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("load/%s", c), func(b *testing.B) {
			store := blobstore.NewMemoryStore()
			src := newEngine(b, n, kernelgo.WithBlobStore(store), kernelgo.WithCompression(c))
			if _, err := src.Save(ctx, "bench"); err != nil {
				b.Fatal(err)
			}
			b.SetBytes(n * 17)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				dst := kernelgo.New(kernelgo.WithBlobStore(store))
				if _, err := dst.Load(ctx, "bench"); err != nil {
					b.Fatal(err)
				}
				_ = dst.Close()
			}
		})
	}
}
