// Package s3 provides an AWS S3 implementation of blobstore.BlobStore,
// plus a DynamoDB-backed commit store for atomically advancing the
// "current snapshot" pointer across concurrent writers.
package s3
