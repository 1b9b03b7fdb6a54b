package record_test

import (
	"testing"

	"github.com/hupe1980/unifile/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) record.Schema {
	t.Helper()
	return record.MustSchema(
		record.Field{Name: "id", Type: record.TypeInt64},
		record.Field{Name: "name", Type: record.TypeString, Nullable: true},
		record.Field{Name: "score", Type: record.TypeFloat64, Nullable: true},
		record.Field{Name: "ok", Type: record.TypeBool},
	)
}

func TestBuilderAppendRow(t *testing.T) {
	b := record.NewBuilder(testSchema(t))

	require.NoError(t, b.AppendRow(int64(1), "alice", 9.5, true))
	require.NoError(t, b.AppendRow(2, nil, nil, false)) // plain int accepted for int64
	assert.Equal(t, 2, b.NumRows())

	batch := b.Batch()
	require.Equal(t, 2, batch.NumRows())
	assert.Equal(t, 0, b.NumRows()) // builder reset after Batch

	assert.Equal(t, []int64{1, 2}, batch.Int64s(0))
	assert.Equal(t, []string{"alice", ""}, batch.Strings(1))
	assert.Equal(t, []float64{9.5, 0}, batch.Float64s(2))
	assert.Equal(t, []bool{true, false}, batch.Bools(3))

	assert.False(t, batch.Null(0, 1))
	assert.True(t, batch.Null(1, 1))
	assert.True(t, batch.Null(1, 2))
	assert.Equal(t, 1, batch.NullCount(1))
	assert.Equal(t, 0, batch.NullCount(0))

	assert.Equal(t, int64(1), batch.Value(0, 0))
	assert.Equal(t, "alice", batch.Value(0, 1))
	assert.Nil(t, batch.Value(1, 1))
}

func TestBuilderAppendRowErrors(t *testing.T) {
	schema := testSchema(t)

	t.Run("wrong arity", func(t *testing.T) {
		b := record.NewBuilder(schema)
		require.Error(t, b.AppendRow(int64(1)))
	})

	t.Run("type mismatch", func(t *testing.T) {
		b := record.NewBuilder(schema)
		err := b.AppendRow("not an int", "n", 1.0, true)
		var tm *record.ErrTypeMismatch
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, "id", tm.Field)
		assert.Equal(t, record.TypeInt64, tm.Type)
	})

	t.Run("null into non-nullable", func(t *testing.T) {
		b := record.NewBuilder(schema)
		err := b.AppendRow(nil, "n", 1.0, true)
		var nn *record.ErrNotNullable
		require.ErrorAs(t, err, &nn)
		assert.Equal(t, "id", nn.Field)
	})

	t.Run("rejected row leaves builder unchanged", func(t *testing.T) {
		b := record.NewBuilder(schema)
		require.NoError(t, b.AppendRow(int64(1), "a", 1.0, true))
		// The mismatch sits behind two valid values; none of them may land.
		require.Error(t, b.AppendRow(int64(2), "b", "oops", true))
		require.NoError(t, b.AppendRow(int64(3), "c", 3.0, false))

		batch := b.Batch()
		require.Equal(t, 2, batch.NumRows())
		assert.Equal(t, []int64{1, 3}, batch.Int64s(0))
		assert.Equal(t, []string{"a", "c"}, batch.Strings(1))
	})
}

func TestBatchTypedAccessPanics(t *testing.T) {
	b := record.NewBuilder(testSchema(t))
	require.NoError(t, b.AppendRow(int64(1), "a", 1.0, true))
	batch := b.Batch()

	assert.Panics(t, func() { batch.Int64s(1) })
	assert.Panics(t, func() { batch.Strings(0) })
}

func TestBuilderReuse(t *testing.T) {
	b := record.NewBuilder(testSchema(t))

	require.NoError(t, b.AppendRow(int64(1), "a", 1.0, true))
	first := b.Batch()

	require.NoError(t, b.AppendRow(int64(2), "b", 2.0, false))
	require.NoError(t, b.AppendRow(int64(3), nil, 3.0, true))
	second := b.Batch()

	assert.Equal(t, 1, first.NumRows())
	assert.Equal(t, 2, second.NumRows())
	assert.Equal(t, []int64{1}, first.Int64s(0))
	assert.Equal(t, []int64{2, 3}, second.Int64s(0))
}

func TestEmptyBatch(t *testing.T) {
	b := record.NewBuilder(testSchema(t))
	batch := b.Batch()
	assert.Equal(t, 0, batch.NumRows())
	assert.Empty(t, batch.Int64s(0))
}
