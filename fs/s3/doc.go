// Package s3 provides an Amazon S3 implementation of the fs.ObjectClient
// interface.
//
// # Usage
//
//	client, err := s3.New(ctx, "my-bucket",
//	    s3.WithRegion("us-east-1"),
//	)
//
//	fsys := fs.NewObjectFS("s3", client)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large payloads
//   - Automatic pagination for listing
//   - Conditional puts for create-new semantics
//   - Works against S3-compatible services via endpoint and path-style
//     overrides
package s3
