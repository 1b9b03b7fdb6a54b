package format_test

import (
	"context"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/unifile/format"
	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelimitedEncoding(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	schema := testSchema(t)
	path := filepath.Join(t.TempDir(), "data.psv")

	w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, testBatch(t, schema)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id|name\n1|Alex\n2|Bob\n", string(data))
}

func TestDelimitedInference(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	raw := "id,score,ok,label\n1,1.5,true,alpha\n2,,false,beta\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	want := []record.Field{
		{Name: "id", Type: record.TypeInt64, Nullable: true},
		{Name: "score", Type: record.TypeFloat64, Nullable: true},
		{Name: "ok", Type: record.TypeBool, Nullable: true},
		{Name: "label", Type: record.TypeString, Nullable: true},
	}
	assert.Equal(t, want, r.Schema().Fields())

	rows := readRows(t, r)
	assert.Equal(t, [][]any{
		{int64(1), 1.5, true, "alpha"},
		{int64(2), nil, false, "beta"},
	}, rows)
}

func TestDelimitedInferenceWidening(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	// n widens int64 to float64, m widens int64 to string, e stays empty.
	raw := "n,m,e\n1,1,\n2.5,x,\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	want := []record.Field{
		{Name: "n", Type: record.TypeFloat64, Nullable: true},
		{Name: "m", Type: record.TypeString, Nullable: true},
		{Name: "e", Type: record.TypeString, Nullable: true},
	}
	assert.Equal(t, want, r.Schema().Fields())

	assert.Equal(t, [][]any{
		{1.0, "1", nil},
		{2.5, "x", nil},
	}, readRows(t, r))
}

func TestDelimitedFloatKeepsPoint(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	schema, err := record.NewSchema(record.Field{Name: "v", Type: record.TypeFloat64})
	require.NoError(t, err)

	builder := record.NewBuilder(schema)
	require.NoError(t, builder.AppendRow(2.0))
	require.NoError(t, builder.AppendRow(0.5))

	w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, builder.Batch()))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v\n2.0\n0.5\n", string(data))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, record.TypeFloat64, r.Schema().Field(0).Type)
	assert.Equal(t, [][]any{{2.0}, {0.5}}, readRows(t, r))
}

func TestDelimitedExplicitSchema(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.tsv")

	raw := "a\ts\n1\t\n2\tx\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	schema, err := record.NewSchema(
		record.Field{Name: "a", Type: record.TypeInt64},
		record.Field{Name: "s", Type: record.TypeString},
	)
	require.NoError(t, err)

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(schema).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, schema.Equal(r.Schema()))

	// s is not nullable, so the empty cell decodes as an empty string.
	assert.Equal(t, [][]any{{int64(1), ""}, {int64(2), "x"}}, readRows(t, r))
}

func TestDelimitedHeaderMismatch(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	schema, err := record.NewSchema(
		record.Field{Name: "a", Type: record.TypeInt64},
		record.Field{Name: "b", Type: record.TypeInt64},
		record.Field{Name: "c", Type: record.TypeInt64},
	)
	require.NoError(t, err)

	_, err = format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(schema).Build(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header has 2 columns")
}

func TestDelimitedDecodeError(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	require.NoError(t, os.WriteFile(path, []byte("a\nnope\n"), 0o644))

	schema, err := record.NewSchema(record.Field{Name: "a", Type: record.TypeInt64})
	require.NoError(t, err)

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(schema).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parse "nope" as int64`)
}

func TestDelimitedEmptyInput(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	dir := t.TempDir()

	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	t.Run("WithSchema", func(t *testing.T) {
		r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
		require.NoError(t, err)
		defer r.Close()

		_, err = r.Read(ctx)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Inferred", func(t *testing.T) {
		_, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot infer")
	})
}

func TestDelimitedBatchSize(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2\n3\n4\n5\n"), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithBatchSize(2).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	var sizes []int

	for {
		batch, err := r.Read(ctx)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}

		sizes = append(sizes, batch.NumRows())
	}

	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestDelimitedWriterLifecycle(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	schema := testSchema(t)

	t.Run("WriteAfterClose", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")

		w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		assert.ErrorIs(t, w.Write(ctx, testBatch(t, schema)), iofs.ErrClosed)
	})

	t.Run("Abort", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")

		w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, testBatch(t, schema)))
		require.NoError(t, w.Abort())
		require.NoError(t, w.Abort())

		// Buffered rows are dropped, nothing reaches the file.
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.EqualValues(t, 0, fi.Size())
	})

	t.Run("SchemaMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")

		other, err := record.NewSchema(record.Field{Name: "x", Type: record.TypeBool})
		require.NoError(t, err)

		w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
		require.NoError(t, err)
		defer w.Abort()

		builder := record.NewBuilder(other)
		require.NoError(t, builder.AppendRow(true))

		err = w.Write(ctx, builder.Batch())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})
}

func TestDelimitedCloseWithoutWrites(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.csv")

	w, err := format.NewWriterBuilder(createFile(t, lfs, path), testSchema(t)).Build(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
