// Package kernels implements the numeric kernels behind every named operation.
//
// Kernels are generic functions instantiated per element type. They never
// allocate their outputs: the caller passes destination slices of the right
// length and dtype, and the kernel fills them on the worker pool.
//
// # Families
//
//   - Elementwise math: Apply, Abs, IsNaN
//   - Bit manipulation (integers only): Popcount, Clz, Ctz, Parity
//   - Hashing: Hash64, Hash128
//   - Prefix scans: CumSum, CumProd, BoolToInt
//   - Binary broadcast: Arctan2, Fmod
//   - Conditional select: Where
//
// Broadcast operands are expressed with Source, which is either a vector read
// per index or a value held fixed for the whole domain.
package kernels
