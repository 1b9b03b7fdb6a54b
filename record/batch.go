package record

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// column is the typed storage for one field. Only the slice matching the
// field type is populated. nulls holds the row positions that are null; a
// nil bitmap means the column has no nulls.
type column struct {
	typ    Type
	nulls  *roaring.Bitmap
	bools  []bool
	ints   []int64
	floats []float64
	strs   []string
}

func newColumn(typ Type) column {
	return column{typ: typ}
}

func (c *column) appendNull() {
	if c.nulls == nil {
		c.nulls = roaring.New()
	}
	c.nulls.Add(uint32(c.len()))
	c.appendZero()
}

func (c *column) appendZero() {
	switch c.typ {
	case TypeBool:
		c.bools = append(c.bools, false)
	case TypeInt64:
		c.ints = append(c.ints, 0)
	case TypeFloat64:
		c.floats = append(c.floats, 0)
	case TypeString:
		c.strs = append(c.strs, "")
	}
}

func (c *column) len() int {
	switch c.typ {
	case TypeBool:
		return len(c.bools)
	case TypeInt64:
		return len(c.ints)
	case TypeFloat64:
		return len(c.floats)
	case TypeString:
		return len(c.strs)
	default:
		return 0
	}
}

func (c *column) null(row int) bool {
	return c.nulls != nil && c.nulls.Contains(uint32(row))
}

// Batch is an immutable columnar collection of rows conforming to one
// schema. Batches are produced by Builder and by format readers; they are
// safe for concurrent reads.
type Batch struct {
	schema Schema
	cols   []column
	rows   int
}

// Schema returns the batch's schema.
func (b *Batch) Schema() Schema { return b.schema }

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int { return b.rows }

// Null reports whether the value at (row, col) is null.
func (b *Batch) Null(row, col int) bool {
	return b.cols[col].null(row)
}

// NullCount returns the number of nulls in the given column.
func (b *Batch) NullCount(col int) int {
	if b.cols[col].nulls == nil {
		return 0
	}
	return int(b.cols[col].nulls.GetCardinality())
}

// Bools returns the backing slice of a TypeBool column. Null positions hold
// the zero value; check Null before trusting them. Panics on type mismatch.
func (b *Batch) Bools(col int) []bool {
	b.mustType(col, TypeBool)
	return b.cols[col].bools
}

// Int64s returns the backing slice of a TypeInt64 column.
func (b *Batch) Int64s(col int) []int64 {
	b.mustType(col, TypeInt64)
	return b.cols[col].ints
}

// Float64s returns the backing slice of a TypeFloat64 column.
func (b *Batch) Float64s(col int) []float64 {
	b.mustType(col, TypeFloat64)
	return b.cols[col].floats
}

// Strings returns the backing slice of a TypeString column.
func (b *Batch) Strings(col int) []string {
	b.mustType(col, TypeString)
	return b.cols[col].strs
}

// Value returns the value at (row, col) boxed as any, or nil when the
// position is null. Row-oriented codecs use this; columnar consumers should
// prefer the typed slice accessors.
func (b *Batch) Value(row, col int) any {
	c := &b.cols[col]
	if c.null(row) {
		return nil
	}
	switch c.typ {
	case TypeBool:
		return c.bools[row]
	case TypeInt64:
		return c.ints[row]
	case TypeFloat64:
		return c.floats[row]
	case TypeString:
		return c.strs[row]
	default:
		return nil
	}
}

func (b *Batch) mustType(col int, want Type) {
	if got := b.cols[col].typ; got != want {
		panic(fmt.Sprintf("record: column %d is %s, not %s", col, got, want))
	}
}

// Builder accumulates rows for one schema and produces immutable batches.
// A Builder is not safe for concurrent use.
type Builder struct {
	schema Schema
	cols   []column
	rows   int
}

// NewBuilder creates a builder for the given schema.
func NewBuilder(schema Schema) *Builder {
	b := &Builder{schema: schema}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.cols = make([]column, b.schema.Len())
	for i := range b.cols {
		b.cols[i] = newColumn(b.schema.Field(i).Type)
	}
	b.rows = 0
}

// NumRows returns the number of rows accumulated since the last Batch call.
func (b *Builder) NumRows() int { return b.rows }

// AppendRow appends one row. Values must match the schema's field count and
// types; nil marks a null and is only accepted for nullable fields.
// Accepted Go types: bool, int/int64, float64, string. A rejected row leaves
// the builder unchanged.
func (b *Builder) AppendRow(values ...any) error {
	if len(values) != b.schema.Len() {
		return fmt.Errorf("row has %d values, schema has %d fields", len(values), b.schema.Len())
	}

	// Validate the whole row before touching any column, so a rejected row
	// cannot leave the columns at different lengths.
	for i, v := range values {
		f := b.schema.Field(i)
		if v == nil {
			if !f.Nullable {
				return &ErrNotNullable{Field: f.Name}
			}
			continue
		}
		switch f.Type {
		case TypeBool:
			if _, ok := v.(bool); !ok {
				return &ErrTypeMismatch{Field: f.Name, Type: f.Type, Value: v}
			}
		case TypeInt64:
			switch v.(type) {
			case int64, int:
			default:
				return &ErrTypeMismatch{Field: f.Name, Type: f.Type, Value: v}
			}
		case TypeFloat64:
			if _, ok := v.(float64); !ok {
				return &ErrTypeMismatch{Field: f.Name, Type: f.Type, Value: v}
			}
		case TypeString:
			if _, ok := v.(string); !ok {
				return &ErrTypeMismatch{Field: f.Name, Type: f.Type, Value: v}
			}
		}
	}

	for i, v := range values {
		c := &b.cols[i]
		if v == nil {
			c.appendNull()
			continue
		}
		switch b.schema.Field(i).Type {
		case TypeBool:
			c.bools = append(c.bools, v.(bool))
		case TypeInt64:
			if x, ok := v.(int64); ok {
				c.ints = append(c.ints, x)
			} else {
				c.ints = append(c.ints, int64(v.(int)))
			}
		case TypeFloat64:
			c.floats = append(c.floats, v.(float64))
		case TypeString:
			c.strs = append(c.strs, v.(string))
		}
	}
	b.rows++
	return nil
}

// Batch returns the accumulated rows as an immutable batch and resets the
// builder for reuse. An empty builder yields an empty batch.
func (b *Builder) Batch() *Batch {
	batch := &Batch{
		schema: b.schema,
		cols:   b.cols,
		rows:   b.rows,
	}
	b.reset()
	return batch
}
