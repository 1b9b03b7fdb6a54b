package fs

import (
	"bufio"
	"context"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// SchemeFile is the scheme served by the local backend.
const SchemeFile = "file"

// LocalFS implements FileSystem over the host filesystem. Paths may carry a
// file:// prefix, which is stripped; anything else is treated as a native
// path. Errors propagate as the host's native I/O errors.
type LocalFS struct{}

// NewLocalFS creates the local backend.
func NewLocalFS() *LocalFS { return &LocalFS{} }

// Scheme returns "file".
func (l *LocalFS) Scheme() string { return SchemeFile }

// Exists reports whether path exists.
func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(stripFileScheme(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Open returns a handle for an existing path.
func (l *LocalFS) Open(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := stripFileScheme(path)
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return &localFile{path: p, f: f}, nil
}

// Create returns a handle for path, truncating existing content and
// creating missing parent directories first.
func (l *LocalFS) Create(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := stripFileScheme(path)
	if err := ensureParent(p); err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	return &localFile{path: p, f: f}, nil
}

// CreateNew is Create with exclusive semantics: an existing path yields an
// error satisfying errors.Is(err, io/fs.ErrExist).
func (l *LocalFS) CreateNew(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := stripFileScheme(path)
	if err := ensureParent(p); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &localFile{path: p, f: f}, nil
}

// RemoveFile deletes a single file.
func (l *LocalFS) RemoveFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Remove(stripFileScheme(path))
}

// RemoveDir deletes exactly one directory entry; it fails when the
// directory is not empty.
func (l *LocalFS) RemoveDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Remove(stripFileScheme(path))
}

// stripFileScheme removes a leading file:// (any case) so the rest of the
// location is a native path.
func stripFileScheme(path string) string {
	const prefix = SchemeFile + "://"
	if len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix) {
		return path[len(prefix):]
	}
	return path
}

// ensureParent creates the parent directory chain for p. Re-creating an
// existing chain is not an error.
func ensureParent(p string) error {
	dir := filepath.Dir(p)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// localFile holds an open descriptor for one local path. Reader and Writer
// duplicate the descriptor, so streams outlive the handle and the handle
// stays usable after a stream is closed.
type localFile struct {
	path string
	f    *os.File
}

func (f *localFile) Path() string { return f.path }

func (f *localFile) Metadata(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := f.f.Stat()
	if err != nil {
		return nil, err
	}
	return sizeMetadata(fi.Size()), nil
}

func (f *localFile) Reader(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dup, err := dupFile(f.f)
	if err != nil {
		return nil, err
	}
	return &localReader{f: dup, br: bufio.NewReader(dup)}, nil
}

func (f *localFile) Writer(ctx context.Context) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dup, err := dupFile(f.f)
	if err != nil {
		return nil, err
	}
	return &localWriter{f: dup, bw: bufio.NewWriter(dup)}, nil
}

type localReader struct {
	f  *os.File
	br *bufio.Reader
}

func (r *localReader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// Seek repositions the underlying descriptor and discards buffered
// read-ahead. SeekCurrent offsets are relative to the logical position the
// consumer has observed, not the descriptor's.
func (r *localReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset -= int64(r.br.Buffered())
	}
	pos, err := r.f.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	r.br.Reset(r.f)
	return pos, nil
}

func (r *localReader) Close() error {
	return r.f.Close()
}

type localWriter struct {
	f      *os.File
	bw     *bufio.Writer
	closed atomic.Bool
}

func (w *localWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, iofs.ErrClosed
	}
	return w.bw.Write(p)
}

func (w *localWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// Abort closes the descriptor without flushing buffered data.
func (w *localWriter) Abort() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	return w.f.Close()
}
