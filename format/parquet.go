package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetConcurrency is the marshal/unmarshal parallelism handed to the
// parquet engine.
const parquetConcurrency = 4

const parquetRootName = "parquet_go_root"

// parquetNamesMetaKey is the key-value metadata entry that preserves the
// exact field names. The engine normalizes footer names to its internal
// variable form, so files carry the original spelling alongside.
const parquetNamesMetaKey = "unifile.field_names"

// parquetReadFile adapts an fs.File to the parquet engine's file
// interface. Open mints an independent stream so column chunks can be
// read in parallel.
type parquetReadFile struct {
	ctx  context.Context
	file fs.File
	r    fs.Reader
}

func newParquetReadFile(ctx context.Context, file fs.File) (*parquetReadFile, error) {
	r, err := file.Reader(ctx)
	if err != nil {
		return nil, err
	}

	return &parquetReadFile{ctx: ctx, file: file, r: r}, nil
}

func (f *parquetReadFile) Open(string) (source.ParquetFile, error) {
	return newParquetReadFile(f.ctx, f.file)
}

func (f *parquetReadFile) Create(string) (source.ParquetFile, error) {
	return nil, errors.New("format: parquet source is read-only")
}

func (f *parquetReadFile) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *parquetReadFile) Seek(offset int64, whence int) (int64, error) {
	return f.r.Seek(offset, whence)
}

func (f *parquetReadFile) Write([]byte) (int, error) {
	return 0, errors.New("format: parquet source is read-only")
}

func (f *parquetReadFile) Close() error { return f.r.Close() }

// parquetWriteFile adapts an fs.Writer to the parquet engine's file
// interface. The engine writes row groups and the footer sequentially,
// so the sink never reads or seeks.
type parquetWriteFile struct {
	w fs.Writer
}

func (f *parquetWriteFile) Write(p []byte) (int, error) { return f.w.Write(p) }

func (f *parquetWriteFile) Close() error { return f.w.Close() }

func (f *parquetWriteFile) Open(string) (source.ParquetFile, error) {
	return nil, errors.New("format: parquet sink is write-only")
}

func (f *parquetWriteFile) Create(string) (source.ParquetFile, error) {
	return nil, errors.New("format: parquet sink is write-only")
}

func (f *parquetWriteFile) Read([]byte) (int, error) {
	return 0, errors.New("format: parquet sink is write-only")
}

func (f *parquetWriteFile) Seek(int64, int) (int64, error) {
	return 0, errors.New("format: parquet sink is write-only")
}

// parquetReader decodes flat parquet files. The schema always comes from
// the file footer.
type parquetReader struct {
	root      *parquetReadFile
	pr        *reader.ParquetReader
	schema    record.Schema
	paths     []string
	total     int64
	off       int64
	batchSize int
}

func newParquetReader(ctx context.Context, file fs.File, batchSize int) (*parquetReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := newParquetReadFile(ctx, file)
	if err != nil {
		return nil, err
	}

	pr, err := reader.NewParquetColumnReader(root, parquetConcurrency)
	if err != nil {
		_ = root.Close()
		return nil, fmt.Errorf("format: open parquet: %w", err)
	}

	schema, paths, err := parquetFileSchema(pr)
	if err != nil {
		pr.ReadStop()
		_ = root.Close()
		return nil, err
	}

	return &parquetReader{
		root:      root,
		pr:        pr,
		schema:    schema,
		paths:     paths,
		total:     pr.GetNumRows(),
		batchSize: batchSize,
	}, nil
}

func (r *parquetReader) Schema() record.Schema { return r.schema }

func (r *parquetReader) Read(ctx context.Context) (*record.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remaining := r.total - r.off
	if remaining <= 0 {
		return nil, io.EOF
	}

	n := remaining
	if n > int64(r.batchSize) {
		n = int64(r.batchSize)
	}

	cols := make([][]interface{}, r.schema.Len())

	for i, path := range r.paths {
		vals, _, _, err := r.pr.ReadColumnByPath(path, n)
		if err != nil {
			return nil, fmt.Errorf("format: read parquet column %q: %w", r.schema.Field(i).Name, err)
		}

		if int64(len(vals)) != n {
			return nil, fmt.Errorf("format: parquet column %q returned %d of %d values", r.schema.Field(i).Name, len(vals), n)
		}

		cols[i] = vals
	}

	builder := record.NewBuilder(r.schema)
	values := make([]any, r.schema.Len())

	for row := int64(0); row < n; row++ {
		for col := range cols {
			values[col] = cols[col][row]
		}

		if err := builder.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	r.off += n

	return builder.Batch(), nil
}

func (r *parquetReader) Close() error {
	r.pr.ReadStop()
	return r.root.Close()
}

// parquetFileSchema maps the footer of a flat parquet file to a record
// schema. Column read paths use the footer names; field names prefer the
// preserved spelling from the key-value metadata when present.
func parquetFileSchema(pr *reader.ParquetReader) (record.Schema, []string, error) {
	elems := pr.Footer.GetSchema()
	if len(elems) == 0 {
		return record.Schema{}, nil, errors.New("format: parquet file has no schema")
	}

	rootName := elems[0].GetName()
	metaNames := parquetMetaNames(pr.Footer, len(elems)-1)

	fields := make([]record.Field, 0, len(elems)-1)
	paths := make([]string, 0, len(elems)-1)

	for i, el := range elems[1:] {
		if el.GetNumChildren() > 0 {
			return record.Schema{}, nil, fmt.Errorf("format: parquet field %q is nested, flat records only", el.GetName())
		}

		if el.Type == nil {
			return record.Schema{}, nil, fmt.Errorf("format: parquet field %q has no physical type", el.GetName())
		}

		var t record.Type

		switch *el.Type {
		case parquet.Type_BOOLEAN:
			t = record.TypeBool
		case parquet.Type_INT64:
			t = record.TypeInt64
		case parquet.Type_DOUBLE:
			t = record.TypeFloat64
		case parquet.Type_BYTE_ARRAY:
			t = record.TypeString
		default:
			return record.Schema{}, nil, fmt.Errorf("format: parquet type %s not supported", el.Type)
		}

		name := el.GetName()
		if infos := pr.SchemaHandler.Infos; i+1 < len(infos) {
			name = infos[i+1].ExName
		}
		if metaNames != nil {
			name = metaNames[i]
		}

		nullable := el.RepetitionType != nil && *el.RepetitionType == parquet.FieldRepetitionType_OPTIONAL

		fields = append(fields, record.Field{Name: name, Type: t, Nullable: nullable})
		paths = append(paths, common.ReformPathStr(rootName+"."+el.GetName()))
	}

	schema, err := record.NewSchema(fields...)
	if err != nil {
		return record.Schema{}, nil, err
	}

	return schema, paths, nil
}

// parquetMetaNames returns the preserved field names when the file carries
// them and their count matches the leaf count.
func parquetMetaNames(footer *parquet.FileMetaData, want int) []string {
	for _, kv := range footer.GetKeyValueMetadata() {
		if kv.GetKey() != parquetNamesMetaKey {
			continue
		}

		var names []string
		if err := json.Unmarshal([]byte(kv.GetValue()), &names); err != nil || len(names) != want {
			return nil
		}

		return names
	}

	return nil
}

// parquetWriter encodes batches as a flat parquet file. Rows cross the
// engine as JSON, which keeps the write path independent of reflection
// over caller types.
type parquetWriter struct {
	w      fs.Writer
	pw     *writer.JSONWriter
	schema record.Schema
	closed atomic.Bool
}

func newParquetWriter(ctx context.Context, file fs.File, schema record.Schema) (*parquetWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jsonSchema, err := parquetJSONSchema(schema)
	if err != nil {
		return nil, err
	}

	w, err := file.Writer(ctx)
	if err != nil {
		return nil, err
	}

	pw, err := writer.NewJSONWriter(jsonSchema, &parquetWriteFile{w: w}, parquetConcurrency)
	if err != nil {
		_ = w.Abort()
		return nil, fmt.Errorf("format: open parquet writer: %w", err)
	}

	names := make([]string, schema.Len())
	for i := range names {
		names[i] = schema.Field(i).Name
	}

	data, err := json.Marshal(names)
	if err != nil {
		_ = w.Abort()
		return nil, fmt.Errorf("format: encode parquet metadata: %w", err)
	}

	kv := parquet.NewKeyValue()
	kv.Key = parquetNamesMetaKey
	val := string(data)
	kv.Value = &val
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, kv)

	return &parquetWriter{w: w, pw: pw, schema: schema}, nil
}

func (w *parquetWriter) Write(ctx context.Context, batch *record.Batch) error {
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

		if err := w.pw.Write(string(data)); err != nil {
			return fmt.Errorf("format: write parquet: %w", err)
		}
	}

	return nil
}

func (w *parquetWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := w.pw.WriteStop(); err != nil {
		_ = w.w.Abort()
		return fmt.Errorf("format: finalize parquet: %w", err)
	}

	return w.w.Close()
}

func (w *parquetWriter) Abort() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	return w.w.Abort()
}

// parquetJSONSchema renders the schema in the tag notation the parquet
// engine parses.
func parquetJSONSchema(schema record.Schema) (string, error) {
	type node struct {
		Tag    string `json:"Tag"`
		Fields []node `json:"Fields,omitempty"`
	}

	root := node{Tag: fmt.Sprintf("name=%s, repetitiontype=REQUIRED", parquetRootName)}

	for i := 0; i < schema.Len(); i++ {
		f := schema.Field(i)

		var typ string

		switch f.Type {
		case record.TypeBool:
			typ = "type=BOOLEAN"
		case record.TypeInt64:
			typ = "type=INT64"
		case record.TypeFloat64:
			typ = "type=DOUBLE"
		case record.TypeString:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		default:
			return "", fmt.Errorf("format: parquet cannot encode field type %s", f.Type)
		}

		rep := "REQUIRED"
		if f.Nullable {
			rep = "OPTIONAL"
		}

		root.Fields = append(root.Fields, node{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=%s", f.Name, typ, rep),
		})
	}

	data, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("format: encode parquet schema: %w", err)
	}

	return string(data), nil
}
