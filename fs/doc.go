// Package fs provides the storage capability contracts and the two built-in
// backends: the local filesystem and remote object stores.
//
// FileSystem is the interface for path-level operations; File hands out
// independent read/write streams for one path. Implementations must be safe
// for concurrent use; individual streams are not.
//
// # Built-in Backends
//
//   - LocalFS: host filesystem, streams duplicate the file descriptor
//   - ObjectFS: any object store reachable through an ObjectClient
//     (s3.New and minio.New provide clients)
//
// # Custom Backends
//
// Implement the FileSystem interface to support custom storage:
//
//	type FileSystem interface {
//	    Scheme() string
//	    Exists(ctx, path) (bool, error)
//	    Open(ctx, path) (File, error)        // fails if absent
//	    Create(ctx, path) (File, error)      // truncates/overwrites
//	    CreateNew(ctx, path) (File, error)   // fails if present
//	    RemoveFile(ctx, path) error
//	    RemoveDir(ctx, path) error
//	}
//
// Absence is reported with errors satisfying errors.Is(err, io/fs.ErrNotExist)
// and collisions with io/fs.ErrExist, for every backend.
//
// # Execution Surfaces
//
// All methods take a context and suspend per store request. Callers that
// want a context-free, blocking call convention wrap any FileSystem with
// Blocking; both surfaces are backed by the same implementation and behave
// identically.
package fs
