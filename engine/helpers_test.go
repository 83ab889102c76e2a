package engine

import "github.com/hupe1980/kernelgo/internal/hash"

func hashKey(k0, k1 uint64) hash.Key {
	return hash.Key{K0: k0, K1: k1}
}
