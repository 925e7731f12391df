// Package minio provides a blobstore.BlobStore backed by MinIO or any
// S3-compatible endpoint, for self-hosted snapshot storage.
package minio
