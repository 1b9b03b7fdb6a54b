// Package minio provides a MinIO implementation of the fs.ObjectClient
// interface for MinIO and other S3-compatible storage.
//
// # Usage
//
//	client, err := minio.New("my-bucket",
//	    minio.WithEndpoint("localhost:9000"),
//	    minio.WithStaticCredentials("minioadmin", "minioadmin", ""),
//	)
//
//	fsys := fs.NewObjectFS("minio", client)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Streaming uploads of unknown length
//   - Conditional puts for create-new semantics
//   - Bulk removal via the RemoveObjects channel API
package minio
