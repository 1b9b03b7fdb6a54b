package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bcicen/jstream"
	json "github.com/goccy/go-json"
	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
)

// jsonReader decodes line-delimited or array-layout JSON records. The
// layout is detected from the first non-whitespace byte of the input.
type jsonReader struct {
	r         fs.Reader
	dec       *jstream.Decoder
	stream    chan *jstream.MetaValue
	schema    record.Schema
	batchSize int
}

func newJSONReader(ctx context.Context, file fs.File, schema record.Schema, batchSize int) (*jsonReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := file.Reader(ctx)
	if err != nil {
		return nil, err
	}

	layout, err := detectJSONLayout(r)
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	if schema.Len() == 0 {
		schema, err = inferJSON(r, decodeDepth(layout))
		if err != nil {
			_ = r.Close()
			return nil, err
		}

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	dec := jstream.NewDecoder(r, decodeDepth(layout))

	return &jsonReader{r: r, dec: dec, stream: dec.Stream(), schema: schema, batchSize: batchSize}, nil
}

func (r *jsonReader) Schema() record.Schema { return r.schema }

func (r *jsonReader) Read(ctx context.Context) (*record.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := record.NewBuilder(r.schema)
	values := make([]any, r.schema.Len())

	for builder.NumRows() < r.batchSize {
		mv, ok := <-r.stream
		if !ok {
			if err := r.dec.Err(); err != nil {
				return nil, fmt.Errorf("format: decode json: %w", err)
			}

			break
		}

		obj, ok := mv.Value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("format: json record is %T, not an object", mv.Value)
		}

		for i := range values {
			f := r.schema.Field(i)

			v, err := coerceJSONValue(obj[f.Name], f)
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

// Close stops the decoder by closing its source, then drains the stream
// so the decode goroutine can exit.
func (r *jsonReader) Close() error {
	err := r.r.Close()

	for range r.stream {
	}

	return err
}

func decodeDepth(layout JSONLayout) int {
	if layout == JSONLayoutArray {
		return 1
	}

	return 0
}

// detectJSONLayout reads forward to the first non-whitespace byte and
// rewinds. A leading '[' means array layout, anything else (including
// empty input) means line-delimited.
func detectJSONLayout(r fs.Reader) (JSONLayout, error) {
	layout := JSONLayoutLines

	var buf [1]byte

	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return 0, err
		}

		if buf[0] == ' ' || buf[0] == '\t' || buf[0] == '\r' || buf[0] == '\n' {
			continue
		}

		if buf[0] == '[' {
			layout = JSONLayoutArray
		}

		break
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return layout, nil
}

// coerceJSONValue converts a decoded JSON value to the field type. JSON
// numbers arrive as float64; integer fields require an integral value.
// Nulls and missing keys pass through as nil.
func coerceJSONValue(v any, f record.Field) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Type {
	case record.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("format: field %q: json value %v is not a bool", f.Name, v)
		}

		return b, nil
	case record.TypeInt64:
		fv, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("format: field %q: json value %v is not a number", f.Name, v)
		}

		iv := int64(fv)
		if float64(iv) != fv {
			return nil, fmt.Errorf("format: field %q: json value %v is not an integer", f.Name, fv)
		}

		return iv, nil
	case record.TypeFloat64:
		fv, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("format: field %q: json value %v is not a number", f.Name, v)
		}

		return fv, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("format: field %q: json value %v is not a string", f.Name, v)
		}

		return s, nil
	}
}

// inferJSON samples up to InferMaxRecords records. Integral numbers
// infer as int64, widening to float64 when a fractional value appears.
// Fields are ordered by name and always nullable.
func inferJSON(r io.Reader, depth int) (record.Schema, error) {
	dec := jstream.NewDecoder(r, depth)

	types := map[string]record.Type{}
	seen := 0

	for mv := range dec.Stream() {
		obj, ok := mv.Value.(map[string]interface{})
		if !ok {
			return record.Schema{}, fmt.Errorf("format: json record is %T, not an object", mv.Value)
		}

		for name, v := range obj {
			if v == nil {
				if _, ok := types[name]; !ok {
					types[name] = record.Type(0)
				}

				continue
			}

			t, err := jsonValueType(v)
			if err != nil {
				return record.Schema{}, fmt.Errorf("format: field %q: %w", name, err)
			}

			widened, err := widenJSONType(types[name], t)
			if err != nil {
				return record.Schema{}, fmt.Errorf("format: field %q: %w", name, err)
			}

			types[name] = widened
		}

		if seen++; seen >= InferMaxRecords {
			break
		}
	}

	if err := dec.Err(); err != nil {
		return record.Schema{}, fmt.Errorf("format: decode json: %w", err)
	}

	if len(types) == 0 {
		return record.Schema{}, errors.New("format: cannot infer schema from empty input")
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}

	sort.Strings(names)

	fields := make([]record.Field, len(names))
	for i, name := range names {
		t := types[name]
		if t == record.Type(0) {
			t = record.TypeString
		}

		fields[i] = record.Field{Name: name, Type: t, Nullable: true}
	}

	return record.NewSchema(fields...)
}

func jsonValueType(v any) (record.Type, error) {
	switch x := v.(type) {
	case bool:
		return record.TypeBool, nil
	case float64:
		if float64(int64(x)) == x {
			return record.TypeInt64, nil
		}

		return record.TypeFloat64, nil
	case string:
		return record.TypeString, nil
	default:
		return 0, fmt.Errorf("json value %v (%T) is not a flat scalar", v, v)
	}
}

func widenJSONType(t, ct record.Type) (record.Type, error) {
	switch {
	case t == record.Type(0), t == ct:
		return ct, nil
	case t == record.TypeInt64 && ct == record.TypeFloat64,
		t == record.TypeFloat64 && ct == record.TypeInt64:
		return record.TypeFloat64, nil
	default:
		return 0, fmt.Errorf("mixed json types %s and %s", t, ct)
	}
}

// jsonWriter encodes batches as JSON records with explicit nulls, either
// line-delimited or as one top-level array.
type jsonWriter struct {
	w      fs.Writer
	schema record.Schema
	layout JSONLayout
	rows   int
	closed atomic.Bool
}

func newJSONWriter(ctx context.Context, file fs.File, schema record.Schema, layout JSONLayout) (*jsonWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := file.Writer(ctx)
	if err != nil {
		return nil, err
	}

	return &jsonWriter{w: w, schema: schema, layout: layout}, nil
}

func (w *jsonWriter) Write(ctx context.Context, batch *record.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.closed.Load() {
		return iofs.ErrClosed
	}

	if err := checkBatchSchema(batch.Schema(), w.schema); err != nil {
		return err
	}

	for i := 0; i < batch.NumRows(); i++ {
		data, err := marshalRowJSON(w.schema, batch, i)
		if err != nil {
			return err
		}

		if err := w.writeRow(data); err != nil {
			return err
		}
	}

	return nil
}

func (w *jsonWriter) writeRow(data []byte) error {
	var lead string

	switch {
	case w.layout == JSONLayoutArray && w.rows == 0:
		lead = "["
	case w.layout == JSONLayoutArray:
		lead = ","
	case w.rows > 0:
		lead = "\n"
	}

	if lead != "" {
		if _, err := io.WriteString(w.w, lead); err != nil {
			return err
		}
	}

	if _, err := w.w.Write(data); err != nil {
		return err
	}

	w.rows++

	return nil
}

func (w *jsonWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	var tail string

	switch {
	case w.layout == JSONLayoutArray && w.rows == 0:
		tail = "[]"
	case w.layout == JSONLayoutArray:
		tail = "]"
	case w.rows > 0:
		tail = "\n"
	}

	if tail != "" {
		if _, err := io.WriteString(w.w, tail); err != nil {
			_ = w.w.Close()
			return err
		}
	}

	return w.w.Close()
}

func (w *jsonWriter) Abort() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	return w.w.Abort()
}

// marshalRowJSON renders one batch row as a JSON object with explicit
// nulls. Floats keep a decimal point or exponent so the value re-infers
// as a float.
func marshalRowJSON(schema record.Schema, batch *record.Batch, row int) ([]byte, error) {
	obj := make(map[string]any, schema.Len())

	for col := 0; col < schema.Len(); col++ {
		f := schema.Field(col)

		v := batch.Value(row, col)
		if fv, ok := v.(float64); ok {
			lit, err := jsonFloatLiteral(fv)
			if err != nil {
				return nil, fmt.Errorf("format: field %q: %w", f.Name, err)
			}

			v = json.RawMessage(lit)
		}

		obj[f.Name] = v
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("format: encode json: %w", err)
	}

	return data, nil
}

func jsonFloatLiteral(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", fmt.Errorf("value %v has no json representation", x)
	}

	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s, nil
}
