// Package hash provides the hashing primitives of the service.
//
// # Element hashing
//
// Key.Sum64 and Key.Sum128 implement the keyed pseudorandom permutation behind
// the hash64 and hash128 kernels: SipHash-2-4 over the element's 8-byte bit
// pattern. The functions allocate nothing.
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot blocks carry a CRC32C checksum, computed with hardware acceleration
// where available:
//
//	checksum := hash.CRC32C(data)
package hash
