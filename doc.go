// Package kernelgo provides an embeddable engine for elementwise numeric
// kernels over named, shared arrays.
//
// Arrays live in a process-wide table and are addressed by name. A request
// names an operation and its operands (array names or typed scalars); the
// engine resolves the operands, checks the memory budget, dispatches on the
// operand dtypes and publishes the outputs as new arrays.
//
// # Quick Start
//
//	e := kernelgo.New(kernelgo.WithMemoryLimit(1 << 30))
//	defer e.Close()
//
//	desc, _ := e.Create(dtype.Float64, []float64{0.1, 0.5, 0.9})
//	// desc == "created id_1:float64:3"
//	desc, _ = e.Execute(ctx, "sin", engine.Array("id_1"))
//
// # Operations
//
// Unary math (abs, log, exp, sin, cos, tan, arcsin, ..., isnan), bit ops
// (popcount, parity, clz, ctz), hash64 and hash128, cumsum and cumprod,
// binary arctan2 and fmod with scalar broadcasting, and the ternary where.
// See engine.Ops for the full list.
//
// # Registry
//
// Outputs are named id_N. Register gives an array a user name and protects
// it from Clear; Attach, Unregister and Delete operate on those names.
//
// # Persistence
//
// With WithBlobStore, Save and Load write and read snapshots of named
// arrays. Any blobstore.BlobStore works: memory, local directory, bbolt,
// S3 (optionally with a DynamoDB commit pointer) or MinIO.
package kernelgo
