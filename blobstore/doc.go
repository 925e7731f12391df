// Package blobstore abstracts where snapshot blobs live: local disk,
// memory, S3 or any S3-compatible store.
//
// Snapshots are immutable blobs. The store contract is write-whole,
// read-whole-or-ranged: a blob appears under its name only once fully
// written, and Open hands back a random-access handle suitable for both
// streaming restores and ranged reads.
//
// Implementations:
//   - LocalStore: file system, memory-mapped reads, atomic rename writes.
//   - MemoryStore: in-memory, for tests.
//   - s3.Store: AWS S3, streaming multipart uploads.
//   - s3.CommitStore: S3 plus a DynamoDB pointer for atomic "current
//     snapshot" commits across concurrent writers.
//   - minio.Store: MinIO and other S3-compatible endpoints.
package blobstore
