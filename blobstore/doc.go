// Package blobstore provides the storage abstraction snapshots are written to.
//
// BlobStore is the interface for reading and writing data blobs (array blocks,
// manifests, CURRENT pointers). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral daemons
//   - LocalStore: a directory on the local file system
//   - bolt.Store: a single bbolt database file
//   - s3.Store / s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
