// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("offheap/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = alloc.ExportReport(ctx, store, "dump.txt")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart streaming uploads through the s3 manager
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
