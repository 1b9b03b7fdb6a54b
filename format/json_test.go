package format_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/unifile/format"
	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesEncoding(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	schema := testSchema(t)
	path := filepath.Join(t.TempDir(), "data.json")

	builder := record.NewBuilder(schema)
	require.NoError(t, builder.AppendRow(int64(1), "Alex"))
	require.NoError(t, builder.AppendRow(int64(2), nil))

	w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, builder.Batch()))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"Alex"}`+"\n"+`{"id":2,"name":null}`+"\n", string(data))
}

func TestJSONArrayEncoding(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	schema := testSchema(t)
	path := filepath.Join(t.TempDir(), "data.json")

	w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).
		WithJSONLayout(format.JSONLayoutArray).
		Build(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, testBatch(t, schema)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Alex"},{"id":2,"name":"Bob"}]`, string(data))

	// The reader detects the array layout from the leading bracket.
	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, [][]any{{int64(1), "Alex"}, {int64(2), "Bob"}}, readRows(t, r))
}

func TestJSONZeroRows(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	schema := testSchema(t)
	dir := t.TempDir()

	t.Run("Lines", func(t *testing.T) {
		path := filepath.Join(dir, "lines.json")

		w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).Build(ctx)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Array", func(t *testing.T) {
		path := filepath.Join(dir, "array.json")

		w, err := format.NewWriterBuilder(createFile(t, lfs, path), schema).
			WithJSONLayout(format.JSONLayoutArray).
			Build(ctx)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))

		r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(schema).Build(ctx)
		require.NoError(t, err)
		defer r.Close()

		_, err = r.Read(ctx)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestJSONMissingKeyReadsNull(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	raw := `{"id":1}` + "\n" + `{"id":2,"name":"Bob"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, [][]any{{int64(1), nil}, {int64(2), "Bob"}}, readRows(t, r))
}

func TestJSONInference(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	raw := `{"s":"x","i":7,"f":1.5,"b":true}` + "\n" +
		`{"s":"y","i":9,"f":2,"b":false}` + "\n" +
		`{"s":null,"i":null,"f":null,"b":null}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	// Fields come back ordered by name, integral samples stay int64 and a
	// fractional value widens the column to float64.
	want := []record.Field{
		{Name: "b", Type: record.TypeBool, Nullable: true},
		{Name: "f", Type: record.TypeFloat64, Nullable: true},
		{Name: "i", Type: record.TypeInt64, Nullable: true},
		{Name: "s", Type: record.TypeString, Nullable: true},
	}
	assert.Equal(t, want, r.Schema().Fields())

	assert.Equal(t, [][]any{
		{true, 1.5, int64(7), "x"},
		{false, 2.0, int64(9), "y"},
		{nil, nil, nil, nil},
	}, readRows(t, r))
}

func TestJSONLayoutDetectionSkipsWhitespace(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	raw := " \n\t [ {\"id\": 1}, {\"id\": 2} ]"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, [][]any{{int64(1)}, {int64(2)}}, readRows(t, r))
}

func TestJSONTypeMismatch(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"id":1,"name":5}`+"\n"), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a string")
}

func TestJSONFractionForIntegerField(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"id":1.5,"name":"x"}`+"\n"), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an integer")
}

func TestJSONNullForNonNullableField(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"id":null,"name":"x"}`+"\n"), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(ctx)

	var notNullable *record.ErrNotNullable
	require.ErrorAs(t, err, &notNullable)
	assert.Equal(t, "id", notNullable.Field)
}

func TestJSONRecordNotObject(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, os.WriteFile(path, []byte("[1,2]"), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).WithSchema(testSchema(t)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an object")
}

func TestJSONMixedNumbersWidenToFloat(t *testing.T) {
	ctx := context.Background()
	lfs := fs.NewLocalFS()
	path := filepath.Join(t.TempDir(), "data.json")

	raw := `{"v":1}` + "\n" + `{"v":2.5}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	r, err := format.NewReaderBuilder(openFile(t, lfs, path)).Build(ctx)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, record.TypeFloat64, r.Schema().Field(0).Type)
	assert.Equal(t, [][]any{{1.0}, {2.5}}, readRows(t, r))
}
