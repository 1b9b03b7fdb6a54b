package format

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
)

// delimitedReader decodes header-first delimited text (csv, dsv, psv, tsv).
type delimitedReader struct {
	r         fs.Reader
	cr        *csv.Reader
	schema    record.Schema
	batchSize int
}

func newDelimitedReader(ctx context.Context, file fs.File, delim rune, schema record.Schema, batchSize int) (*delimitedReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := file.Reader(ctx)
	if err != nil {
		return nil, err
	}

	if schema.Len() == 0 {
		schema, err = inferDelimited(r, delim)
		if err != nil {
			_ = r.Close()
			return nil, err
		}

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.ReuseRecord = true

	// Consume the header row. An empty input has none; reads return EOF.
	header, err := cr.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		_ = r.Close()
		return nil, fmt.Errorf("format: read header: %w", err)
	}

	if err == nil && len(header) != schema.Len() {
		_ = r.Close()
		return nil, fmt.Errorf("format: header has %d columns, schema has %d fields", len(header), schema.Len())
	}

	return &delimitedReader{r: r, cr: cr, schema: schema, batchSize: batchSize}, nil
}

func (r *delimitedReader) Schema() record.Schema { return r.schema }

func (r *delimitedReader) Read(ctx context.Context) (*record.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := record.NewBuilder(r.schema)
	values := make([]any, r.schema.Len())

	for builder.NumRows() < r.batchSize {
		row, err := r.cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("format: read row: %w", err)
		}

		for i := range values {
			v, err := parseCell(row[i], r.schema.Field(i))
			if err != nil {
				return nil, err
			}

			values[i] = v
		}

		if err := builder.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	if builder.NumRows() == 0 {
		return nil, io.EOF
	}

	return builder.Batch(), nil
}

func (r *delimitedReader) Close() error {
	return r.r.Close()
}

func parseCell(cell string, f record.Field) (any, error) {
	if cell == "" && f.Nullable {
		return nil, nil
	}

	switch f.Type {
	case record.TypeBool:
		v, err := strconv.ParseBool(cell)
		if err != nil {
			return nil, fmt.Errorf("format: field %q: parse %q as bool: %w", f.Name, cell, err)
		}

		return v, nil
	case record.TypeInt64:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("format: field %q: parse %q as int64: %w", f.Name, cell, err)
		}

		return v, nil
	case record.TypeFloat64:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("format: field %q: parse %q as float64: %w", f.Name, cell, err)
		}

		return v, nil
	default:
		return cell, nil
	}
}

// inferDelimited samples up to InferMaxRecords data rows and resolves
// each column to the narrowest type that holds every sampled cell.
// Inferred fields are always nullable.
func inferDelimited(r io.Reader, delim rune) (record.Schema, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record.Schema{}, errors.New("format: cannot infer schema from empty input")
		}

		return record.Schema{}, fmt.Errorf("format: read header: %w", err)
	}

	names := make([]string, len(header))
	copy(names, header)

	types := make([]record.Type, len(names))

	for n := 0; n < InferMaxRecords; n++ {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return record.Schema{}, fmt.Errorf("format: read row: %w", err)
		}

		for i, cell := range row {
			if cell == "" {
				continue
			}

			types[i] = widenCellType(types[i], cell)
		}
	}

	fields := make([]record.Field, len(names))
	for i, name := range names {
		t := types[i]
		if t == record.Type(0) {
			t = record.TypeString
		}

		fields[i] = record.Field{Name: name, Type: t, Nullable: true}
	}

	return record.NewSchema(fields...)
}

func widenCellType(t record.Type, cell string) record.Type {
	ct := cellType(cell)

	switch {
	case t == record.Type(0), t == ct:
		return ct
	case t == record.TypeInt64 && ct == record.TypeFloat64,
		t == record.TypeFloat64 && ct == record.TypeInt64:
		return record.TypeFloat64
	default:
		return record.TypeString
	}
}

func cellType(cell string) record.Type {
	if strings.EqualFold(cell, "true") || strings.EqualFold(cell, "false") {
		return record.TypeBool
	}

	if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return record.TypeInt64
	}

	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return record.TypeFloat64
	}

	return record.TypeString
}

// delimitedWriter encodes batches as delimited text with a header row.
// The header is written before the first record so that closing without
// writing leaves an empty artifact.
type delimitedWriter struct {
	w           fs.Writer
	cw          *csv.Writer
	schema      record.Schema
	wroteHeader bool
	closed      atomic.Bool
}

func newDelimitedWriter(ctx context.Context, file fs.File, delim rune, schema record.Schema) (*delimitedWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := file.Writer(ctx)
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)
	cw.Comma = delim

	return &delimitedWriter{w: w, cw: cw, schema: schema}, nil
}

func (w *delimitedWriter) Write(ctx context.Context, batch *record.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.closed.Load() {
		return iofs.ErrClosed
	}

	if err := checkBatchSchema(batch.Schema(), w.schema); err != nil {
		return err
	}

	if !w.wroteHeader {
		header := make([]string, w.schema.Len())
		for i := range header {
			header[i] = w.schema.Field(i).Name
		}

		if err := w.cw.Write(header); err != nil {
			return fmt.Errorf("format: write header: %w", err)
		}

		w.wroteHeader = true
	}

	row := make([]string, w.schema.Len())

	for i := 0; i < batch.NumRows(); i++ {
		for j := range row {
			row[j] = formatCell(batch.Value(i, j))
		}

		if err := w.cw.Write(row); err != nil {
			return fmt.Errorf("format: write row: %w", err)
		}
	}

	return nil
}

func (w *delimitedWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	w.cw.Flush()

	if err := w.cw.Error(); err != nil {
		_ = w.w.Close()
		return fmt.Errorf("format: flush: %w", err)
	}

	return w.w.Close()
}

func (w *delimitedWriter) Abort() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	return w.w.Abort()
}

// formatCell renders a value for a delimited cell. Nulls become empty
// cells. Integral floats keep a decimal point so the value re-infers as
// a float.
func formatCell(v any) string {
	if v == nil {
		return ""
	}

	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !math.IsNaN(x) && !math.IsInf(x, 0) {
			s += ".0"
		}

		return s
	case string:
		return x
	default:
		return fmt.Sprint(v)
	}
}
