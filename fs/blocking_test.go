package fs_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/hupe1980/unifile/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBlockingSurfaceEquivalence runs the same lifecycle through the
// cooperative and the blocking surface and expects identical observations.
func TestBlockingSurfaceEquivalence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	lfs := fs.NewLocalFS()

	ctxPath := filepath.Join(dir, "ctx.txt")
	blkPath := filepath.Join(dir, "blk.txt")

	// Cooperative surface.
	f, err := lfs.Create(ctx, ctxPath)
	require.NoError(t, err)
	w, err := f.Writer(ctx)
	require.NoError(t, err)
	_, err = io.WriteString(w, "same bytes")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Blocking surface.
	bfs := fs.Blocking(lfs)
	bf, err := bfs.Create(blkPath)
	require.NoError(t, err)
	bw, err := bf.Writer()
	require.NoError(t, err)
	_, err = io.WriteString(bw, "same bytes")
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	assert.Equal(t, lfs.Scheme(), bfs.Scheme())

	ok, err := bfs.Exists(blkPath)
	require.NoError(t, err)
	assert.True(t, ok)

	ctxMD, err := f.Metadata(ctx)
	require.NoError(t, err)
	blkMD, err := bf.Metadata()
	require.NoError(t, err)
	assert.Equal(t, ctxMD.Size(), blkMD.Size())

	br, err := bf.Reader()
	require.NoError(t, err)
	data, err := io.ReadAll(br)
	require.NoError(t, err)
	require.NoError(t, br.Close())
	assert.Equal(t, "same bytes", string(data))

	require.NoError(t, bfs.RemoveFile(blkPath))
	ok, err = lfs.Exists(ctx, blkPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockingCreateNewAndRemoveDir(t *testing.T) {
	dir := t.TempDir()
	bfs := fs.Blocking(fs.NewLocalFS())

	path := filepath.Join(dir, "sub", "x.txt")
	bf, err := bfs.CreateNew(path)
	require.NoError(t, err)
	assert.Equal(t, path, bf.Path())

	_, err = bfs.CreateNew(path)
	require.Error(t, err)

	require.NoError(t, bfs.RemoveFile(path))
	require.NoError(t, bfs.RemoveDir(filepath.Join(dir, "sub")))
}

// TestBlockingContextCanceled checks that the base context fixed at
// construction governs every operation and every stream minted later.
func TestBlockingContextCanceled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	bfs := fs.BlockingContext(ctx, fs.NewLocalFS())
	path := filepath.Join(dir, "x.txt")

	bf, err := bfs.Create(path)
	require.NoError(t, err)

	cancel()

	_, err = bfs.Exists(path)
	require.ErrorIs(t, err, context.Canceled)
	_, err = bfs.Open(path)
	require.ErrorIs(t, err, context.Canceled)
	_, err = bf.Reader()
	require.ErrorIs(t, err, context.Canceled)
}

func TestBlockingEscapeHatches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	lfs := fs.NewLocalFS()
	bfs := fs.Blocking(lfs)

	assert.Same(t, lfs, bfs.FileSystem())

	bf, err := bfs.Create(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)

	// The unwrapped handle accepts an explicit context again.
	_, err = bf.File().Metadata(ctx)
	require.NoError(t, err)
}
