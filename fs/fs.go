package fs

import (
	"context"
	"io"
)

// FileSystem is the capability contract every backend implements. A
// FileSystem is bound to one scheme (and, for remote backends, one store
// configuration); it is stateless with respect to individual files and safe
// for concurrent use.
type FileSystem interface {
	// Scheme returns the location scheme this backend serves.
	Scheme() string

	// Exists reports whether path exists. Absence is not an error; only
	// I/O failures other than absence propagate.
	Exists(ctx context.Context, path string) (bool, error)

	// Open returns a handle for an existing path. A missing path yields an
	// error satisfying errors.Is(err, io/fs.ErrNotExist).
	Open(ctx context.Context, path string) (File, error)

	// Create returns a handle for path, truncating existing content. Local
	// backends create missing parent directories first.
	Create(ctx context.Context, path string) (File, error)

	// CreateNew is Create with exclusive semantics: an existing path yields
	// an error satisfying errors.Is(err, io/fs.ErrExist).
	CreateNew(ctx context.Context, path string) (File, error)

	// RemoveFile deletes a single file. Local backends report absence as an
	// error; object stores treat deleting an absent key as success.
	RemoveFile(ctx context.Context, path string) error

	// RemoveDir deletes a directory. On the local backend this removes
	// exactly one directory entry and fails when it is not empty. On object
	// backends, which have no directories, it deletes every object whose
	// key starts with path.
	RemoveDir(ctx context.Context, path string) error
}

// File identifies one path within one FileSystem. Handles are cheap and may
// be shared; each Reader/Writer call mints an independent stream, so
// concurrent readers do not interfere. Streams, not the handle, carry the
// I/O state.
type File interface {
	// Path returns the identifying path verbatim (scheme-stripped for the
	// local backend).
	Path() string

	// Metadata fetches the file's current metadata. It is never cached: a
	// remote object's size can change out-of-band.
	Metadata(ctx context.Context) (Metadata, error)

	// Reader mints a new read stream onto the file's content. The stream
	// is independently owned (closing it leaves the handle usable) and is
	// bound to ctx for its lifetime.
	Reader(ctx context.Context) (Reader, error)

	// Writer mints a new write stream replacing the file's content on
	// Close. The stream is bound to ctx for its lifetime.
	Writer(ctx context.Context) (Writer, error)
}

// Metadata is a point-in-time snapshot of a file's attributes.
type Metadata interface {
	// Size returns the file's length in bytes.
	Size() int64
}

// Reader is a buffered, seekable read stream over one file. A Reader is
// owned by a single consumer and must not be driven from two call sites.
type Reader interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Writer is a write stream over one file. Close commits the content;
// exactly one Close is expected, issued by the owner after the last write.
// Calling Close again returns the first result. Abort releases the stream's
// resources without committing; it is a no-op after Close.
type Writer interface {
	io.Writer
	io.Closer

	// Abort tears the stream down without committing buffered or in-flight
	// data. Safe to call more than once and after Close.
	Abort() error
}

type sizeMetadata int64

func (m sizeMetadata) Size() int64 { return int64(m) }
