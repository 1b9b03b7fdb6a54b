package fs

import (
	"bufio"
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// ObjectClient is the narrow capability an object-store client provides to
// ObjectFS. Implementations translate their store's not-found and
// already-exists conditions to errors satisfying errors.Is against
// io/fs.ErrNotExist and io/fs.ErrExist.
type ObjectClient interface {
	// Head returns the object's size. An absent key yields an
	// ErrNotExist-class error.
	Head(ctx context.Context, key string) (int64, error)

	// Get returns a stream over the byte range [off, off+length); a
	// negative length reads to the end of the object.
	Get(ctx context.Context, key string, off, length int64) (io.ReadCloser, error)

	// Put stores body of known size as the object's full content.
	// With exclusive set, the put fails with an ErrExist-class error when
	// the key already exists.
	Put(ctx context.Context, key string, body io.Reader, size int64, exclusive bool) error

	// Upload streams body of unknown length as the object's full content.
	// The object becomes visible when the upload completes.
	Upload(ctx context.Context, key string, body io.Reader) error

	// Delete removes the given keys. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, keys ...string) error

	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectFS implements FileSystem over an ObjectClient. The store has no
// directories: RemoveDir deletes every object under the given prefix.
type ObjectFS struct {
	scheme string
	client ObjectClient
}

// NewObjectFS creates an object backend serving the given scheme.
func NewObjectFS(scheme string, client ObjectClient) *ObjectFS {
	return &ObjectFS{scheme: scheme, client: client}
}

// Scheme returns the scheme this backend was registered under.
func (o *ObjectFS) Scheme() string { return o.scheme }

// Exists reports whether the object exists. A not-found probe result is
// false, not an error; any other failure propagates.
func (o *ObjectFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := o.client.Head(ctx, objectKey(path))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Open returns a handle for an existing object.
func (o *ObjectFS) Open(ctx context.Context, path string) (File, error) {
	key := objectKey(path)
	if _, err := o.client.Head(ctx, key); err != nil {
		return nil, &iofs.PathError{Op: "open", Path: path, Err: err}
	}
	return &objectFile{client: o.client, path: path, key: key}, nil
}

// Create establishes the object with empty content, overwriting any
// previous content. Creation is observable by other readers immediately,
// before any payload bytes are streamed through a Writer.
func (o *ObjectFS) Create(ctx context.Context, path string) (File, error) {
	key := objectKey(path)
	if err := o.client.Put(ctx, key, strings.NewReader(""), 0, false); err != nil {
		return nil, &iofs.PathError{Op: "create", Path: path, Err: err}
	}
	return &objectFile{client: o.client, path: path, key: key}, nil
}

// CreateNew is Create with exclusive semantics, backed by the store's
// conditional-put support.
func (o *ObjectFS) CreateNew(ctx context.Context, path string) (File, error) {
	key := objectKey(path)
	if err := o.client.Put(ctx, key, strings.NewReader(""), 0, true); err != nil {
		return nil, &iofs.PathError{Op: "create", Path: path, Err: err}
	}
	return &objectFile{client: o.client, path: path, key: key}, nil
}

// RemoveFile deletes one object. Object stores treat deleting an absent key
// as success.
func (o *ObjectFS) RemoveFile(ctx context.Context, path string) error {
	return o.client.Delete(ctx, objectKey(path))
}

// RemoveDir deletes every object whose key starts with path.
func (o *ObjectFS) RemoveDir(ctx context.Context, path string) error {
	keys, err := o.client.List(ctx, objectKey(path))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return o.client.Delete(ctx, keys...)
}

// objectKey normalizes a location to a store key: a scheme://host prefix is
// dropped and the leading slash trimmed.
func objectKey(path string) string {
	if strings.Contains(path, "://") {
		if u, err := url.Parse(path); err == nil {
			path = u.Path
		}
	}
	return strings.TrimPrefix(path, "/")
}

// objectFile is one object's handle. It holds no stream state; Reader and
// Writer mint fresh client-side streams per call.
type objectFile struct {
	client ObjectClient
	path   string
	key    string
}

func (f *objectFile) Path() string { return f.path }

func (f *objectFile) Metadata(ctx context.Context) (Metadata, error) {
	size, err := f.client.Head(ctx, f.key)
	if err != nil {
		return nil, &iofs.PathError{Op: "stat", Path: f.path, Err: err}
	}
	return sizeMetadata(size), nil
}

func (f *objectFile) Reader(ctx context.Context) (Reader, error) {
	size, err := f.client.Head(ctx, f.key)
	if err != nil {
		return nil, &iofs.PathError{Op: "read", Path: f.path, Err: err}
	}
	return &objectReader{
		ctx:    ctx,
		client: f.client,
		key:    f.key,
		size:   size,
	}, nil
}

func (f *objectFile) Writer(ctx context.Context) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newObjectWriter(ctx, f.client, f.key), nil
}

const objectReadBufSize = 64 * 1024

// objectReader reads an object through ranged GETs. The stream for the
// current offset is opened lazily on first Read and discarded on Seek, so a
// seek costs one aborted and one reopened request rather than a buffered
// skip. The context bound at mint time governs every request.
type objectReader struct {
	ctx    context.Context
	client ObjectClient
	key    string
	size   int64
	off    int64
	body   io.ReadCloser
	br     *bufio.Reader
	closed bool
}

func (r *objectReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, iofs.ErrClosed
	}
	if r.off >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		body, err := r.client.Get(r.ctx, r.key, r.off, -1)
		if err != nil {
			return 0, err
		}
		r.body = body
		r.br = bufio.NewReaderSize(body, objectReadBufSize)
	}
	n, err := r.br.Read(p)
	r.off += int64(n)
	return n, err
}

func (r *objectReader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, iofs.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("fs: invalid seek whence")
	}
	if abs < 0 {
		return 0, errors.New("fs: negative seek position")
	}
	if abs != r.off {
		r.discard()
		r.off = abs
	}
	return abs, nil
}

func (r *objectReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.discard()
	return nil
}

func (r *objectReader) discard() {
	if r.body != nil {
		_ = r.body.Close()
		r.body = nil
		r.br = nil
	}
}

// errWriterAbandoned closes the pipe of a writer that went out of scope
// without Close or Abort.
var errWriterAbandoned = errors.New("fs: object writer abandoned without close")

// errWriterAborted closes the pipe behind Abort.
var errWriterAborted = errors.New("fs: object writer aborted")

// objectWriter streams content to the store through a pipe feeding a
// background upload. Close signals EOF and waits for the upload result;
// Abort fails the pipe so the upload goroutine exits without committing.
// A cleanup registered at mint time tears the pipe down if the writer is
// abandoned, so the upload goroutine and its connection are released on
// every exit path.
type objectWriter struct {
	pw       *io.PipeWriter
	done     chan error
	closed   atomic.Bool
	closeErr error
	closeMu  sync.Mutex
	cleanup  runtime.Cleanup
}

func newObjectWriter(ctx context.Context, client ObjectClient, key string) *objectWriter {
	pr, pw := io.Pipe()

	w := &objectWriter{
		pw:   pw,
		done: make(chan error, 1),
	}

	// The goroutine must not capture w, or an abandoned writer would stay
	// reachable and the cleanup below could never run.
	done := w.done
	go func() {
		err := client.Upload(ctx, key, pr)
		_ = pr.CloseWithError(err)
		done <- err
	}()

	w.cleanup = runtime.AddCleanup(w, func(pw *io.PipeWriter) {
		_ = pw.CloseWithError(errWriterAbandoned)
	}, pw)

	return w
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return w.pw.Write(p)
}

func (w *objectWriter) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return w.closeErr
	}
	w.cleanup.Stop()

	// Close the write end to signal EOF, then wait for the upload result.
	if err := w.pw.Close(); err != nil {
		w.closeErr = err
		return err
	}
	w.closeErr = <-w.done
	return w.closeErr
}

func (w *objectWriter) Abort() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.cleanup.Stop()
	return w.pw.CloseWithError(errWriterAborted)
}
