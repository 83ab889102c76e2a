// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// Store keeps every blob as an S3 object under a root prefix. Small blobs are
// written with a single PutObject carrying a CRC32C checksum; streamed blobs
// go through the multipart uploader.
//
// DDBCommitStore layers DynamoDB on top of Store so that snapshot CURRENT
// pointers are committed with conditional writes. Concurrent savers to the
// same prefix then fail with ErrConcurrentModification instead of silently
// overwriting each other.
package s3
