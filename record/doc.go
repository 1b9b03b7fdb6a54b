// Package record defines the columnar record model shared by all format
// codecs: typed fields, schemas, and row batches with per-column null sets.
//
// A Batch is immutable once built. Builders accumulate rows and hand out
// batches; readers produce batches; writers consume them. Null positions are
// tracked per column with Roaring bitmaps so sparse nulls stay cheap.
//
// # Quick Start
//
//	schema, _ := record.NewSchema(
//	    record.Field{Name: "id", Type: record.TypeInt64},
//	    record.Field{Name: "name", Type: record.TypeString, Nullable: true},
//	)
//
//	b := record.NewBuilder(schema)
//	_ = b.AppendRow(int64(1), "alice")
//	_ = b.AppendRow(int64(2), nil)
//	batch := b.Batch()
//
//	batch.NumRows()      // 2
//	batch.Null(1, 1)     // true
//	batch.Int64s(0)[0]   // 1
package record
