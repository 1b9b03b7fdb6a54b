package format

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
)

const (
	// InferMaxRecords caps how many records schema inference samples
	// before rewinding the input.
	InferMaxRecords = 100

	// DefaultBatchSize is the row cap per batch returned by Read.
	DefaultBatchSize = 1024
)

// ErrFormatNotFound is returned when a path carries no extension to
// resolve a format from.
var ErrFormatNotFound = errors.New("format: format not found in path")

// ErrFormatNotSupported is returned for formats the module has no codec
// for, including recognized but unimplemented ones.
type ErrFormatNotSupported struct {
	Format string
}

func (e *ErrFormatNotSupported) Error() string {
	return fmt.Sprintf("format: %q not supported", e.Format)
}

// JSONLayout selects how a JSON writer arranges records.
type JSONLayout int

const (
	// JSONLayoutLines writes one record per line (NDJSON).
	JSONLayoutLines JSONLayout = iota

	// JSONLayoutArray writes all records as a single top-level array.
	JSONLayoutArray
)

func (l JSONLayout) String() string {
	switch l {
	case JSONLayoutLines:
		return "lines"
	case JSONLayoutArray:
		return "array"
	default:
		return fmt.Sprintf("JSONLayout(%d)", int(l))
	}
}

// Reader decodes a stream of record batches from a file.
type Reader interface {
	// Schema returns the schema batches are decoded with.
	Schema() record.Schema

	// Read returns the next batch. It returns io.EOF when the input is
	// exhausted.
	Read(ctx context.Context) (*record.Batch, error)

	// Close releases the underlying stream.
	Close() error
}

// Writer encodes record batches to a file.
type Writer interface {
	// Write appends every row of batch. The batch schema must equal the
	// writer schema.
	Write(ctx context.Context, batch *record.Batch) error

	// Close flushes buffered data and finalizes the artifact. Safe to
	// call more than once.
	Close() error

	// Abort discards the artifact instead of finalizing it.
	Abort() error
}

// FromPath resolves a format name from the extension of p. The path may
// carry a scheme ("s3://bucket/data.parquet").
func FromPath(p string) (string, error) {
	if strings.Contains(p, "://") {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}

	ext := path.Ext(p)
	if ext == "" || ext == "." {
		return "", ErrFormatNotFound
	}

	return strings.ToLower(ext[1:]), nil
}

// Delimiter returns the field delimiter for a delimited text format.
func Delimiter(format string) (rune, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ',', nil
	case "dsv":
		return ':', nil
	case "psv":
		return '|', nil
	case "tsv":
		return '\t', nil
	default:
		return 0, &ErrFormatNotSupported{Format: format}
	}
}

// ReaderBuilder configures and opens a Reader for a file.
type ReaderBuilder struct {
	file      fs.File
	format    string
	schema    record.Schema
	batchSize int
}

// NewReaderBuilder returns a builder that resolves the format from the
// file path extension and infers the schema from the input.
func NewReaderBuilder(file fs.File) ReaderBuilder {
	return ReaderBuilder{file: file}
}

// WithFormat overrides the format resolved from the path extension.
func (b ReaderBuilder) WithFormat(format string) ReaderBuilder {
	b.format = format
	return b
}

// WithSchema skips inference and decodes with the given schema. Parquet
// readers ignore it and take the schema from the file footer.
func (b ReaderBuilder) WithSchema(schema record.Schema) ReaderBuilder {
	b.schema = schema
	return b
}

// WithBatchSize caps the rows per batch returned by Read. Values below
// one fall back to DefaultBatchSize.
func (b ReaderBuilder) WithBatchSize(n int) ReaderBuilder {
	b.batchSize = n
	return b
}

// Build opens the underlying stream and returns the format reader.
func (b ReaderBuilder) Build(ctx context.Context) (Reader, error) {
	name, err := resolveFormat(b.format, b.file)
	if err != nil {
		return nil, err
	}

	size := b.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	switch name {
	case "csv", "dsv", "psv", "tsv":
		delim, err := Delimiter(name)
		if err != nil {
			return nil, err
		}

		return newDelimitedReader(ctx, b.file, delim, b.schema, size)
	case "json":
		return newJSONReader(ctx, b.file, b.schema, size)
	case "parquet":
		return newParquetReader(ctx, b.file, size)
	default:
		return nil, &ErrFormatNotSupported{Format: name}
	}
}

// WriterBuilder configures and opens a Writer for a file.
type WriterBuilder struct {
	file   fs.File
	schema record.Schema
	format string
	layout JSONLayout
}

// NewWriterBuilder returns a builder that encodes batches of the given
// schema, resolving the format from the file path extension.
func NewWriterBuilder(file fs.File, schema record.Schema) WriterBuilder {
	return WriterBuilder{file: file, schema: schema}
}

// WithFormat overrides the format resolved from the path extension.
func (b WriterBuilder) WithFormat(format string) WriterBuilder {
	b.format = format
	return b
}

// WithJSONLayout selects the JSON writer layout. Defaults to
// JSONLayoutLines. Other formats ignore it.
func (b WriterBuilder) WithJSONLayout(layout JSONLayout) WriterBuilder {
	b.layout = layout
	return b
}

// Build opens the underlying stream and returns the format writer.
func (b WriterBuilder) Build(ctx context.Context) (Writer, error) {
	if b.schema.Len() == 0 {
		return nil, errors.New("format: writer requires a non-empty schema")
	}

	name, err := resolveFormat(b.format, b.file)
	if err != nil {
		return nil, err
	}

	switch name {
	case "csv", "dsv", "psv", "tsv":
		delim, err := Delimiter(name)
		if err != nil {
			return nil, err
		}

		return newDelimitedWriter(ctx, b.file, delim, b.schema)
	case "json":
		return newJSONWriter(ctx, b.file, b.schema, b.layout)
	case "parquet":
		return newParquetWriter(ctx, b.file, b.schema)
	default:
		return nil, &ErrFormatNotSupported{Format: name}
	}
}

func resolveFormat(override string, file fs.File) (string, error) {
	if override != "" {
		return strings.ToLower(override), nil
	}

	return FromPath(file.Path())
}

func checkBatchSchema(got, want record.Schema) error {
	if !got.Equal(want) {
		return fmt.Errorf("format: batch schema %s does not match writer schema %s", got, want)
	}

	return nil
}
