package hash

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

// Key is the 128-bit key of the element hash.
type Key struct {
	K0, K1 uint64
}

// DefaultKey is used when no key is configured. Changing it changes every
// hash64/hash128 result, so it is part of the persisted contract.
var DefaultKey = Key{K0: 0x736f6d6570736575, K1: 0x646f72616e646f6d}

// Sum64 hashes the 8-byte little-endian encoding of bits.
func (k Key) Sum64(bits uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	return siphash.Hash(k.K0, k.K1, buf[:])
}

// Sum128 hashes the 8-byte little-endian encoding of bits and returns the
// low and high halves of the 128-bit digest.
func (k Key) Sum128(bits uint64) (lo, hi uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	return siphash.Hash128(k.K0, k.K1, buf[:])
}
