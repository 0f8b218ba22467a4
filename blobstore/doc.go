// Package blobstore provides destinations for allocator reports.
//
// A Store holds named, immutable blobs. The allocator streams its block dump
// into a Store through Create; tools read reports back with Open and List.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local filesystem, reads are memory mapped
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with multipart streaming uploads
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
