package fs

import "context"

// BlockingFS adapts a FileSystem to a context-free, blocking call
// convention. Every method delegates to the wrapped FileSystem with a base
// context fixed at construction, so both surfaces share one implementation
// and identical semantics. Use BlockingContext to layer a deadline or
// cancellation over the blocking surface.
type BlockingFS struct {
	fsys FileSystem
	ctx  context.Context
}

// Blocking wraps fsys with context.Background as the base context.
func Blocking(fsys FileSystem) *BlockingFS {
	return BlockingContext(context.Background(), fsys)
}

// BlockingContext wraps fsys with ctx as the base context for every
// operation and every stream minted through it.
func BlockingContext(ctx context.Context, fsys FileSystem) *BlockingFS {
	return &BlockingFS{fsys: fsys, ctx: ctx}
}

// FileSystem returns the wrapped cooperative-surface FileSystem.
func (b *BlockingFS) FileSystem() FileSystem { return b.fsys }

// Scheme returns the wrapped backend's scheme.
func (b *BlockingFS) Scheme() string { return b.fsys.Scheme() }

// Exists reports whether path exists.
func (b *BlockingFS) Exists(path string) (bool, error) {
	return b.fsys.Exists(b.ctx, path)
}

// Open returns a blocking handle for an existing path.
func (b *BlockingFS) Open(path string) (*BlockingFile, error) {
	f, err := b.fsys.Open(b.ctx, path)
	if err != nil {
		return nil, err
	}
	return &BlockingFile{file: f, ctx: b.ctx}, nil
}

// Create returns a blocking handle for path, truncating existing content.
func (b *BlockingFS) Create(path string) (*BlockingFile, error) {
	f, err := b.fsys.Create(b.ctx, path)
	if err != nil {
		return nil, err
	}
	return &BlockingFile{file: f, ctx: b.ctx}, nil
}

// CreateNew is Create with exclusive semantics.
func (b *BlockingFS) CreateNew(path string) (*BlockingFile, error) {
	f, err := b.fsys.CreateNew(b.ctx, path)
	if err != nil {
		return nil, err
	}
	return &BlockingFile{file: f, ctx: b.ctx}, nil
}

// RemoveFile deletes a single file.
func (b *BlockingFS) RemoveFile(path string) error {
	return b.fsys.RemoveFile(b.ctx, path)
}

// RemoveDir deletes a directory (local) or a key prefix (object stores).
func (b *BlockingFS) RemoveDir(path string) error {
	return b.fsys.RemoveDir(b.ctx, path)
}

// BlockingFile adapts a File to the blocking surface. Streams minted
// through it are bound to the adapter's base context.
type BlockingFile struct {
	file File
	ctx  context.Context
}

// File returns the wrapped cooperative-surface handle.
func (f *BlockingFile) File() File { return f.file }

// Path returns the handle's identifying path.
func (f *BlockingFile) Path() string { return f.file.Path() }

// Metadata fetches the file's current metadata.
func (f *BlockingFile) Metadata() (Metadata, error) {
	return f.file.Metadata(f.ctx)
}

// Reader mints a new read stream.
func (f *BlockingFile) Reader() (Reader, error) {
	return f.file.Reader(f.ctx)
}

// Writer mints a new write stream.
func (f *BlockingFile) Writer() (Writer, error) {
	return f.file.Writer(f.ctx)
}
