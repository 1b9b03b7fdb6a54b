// Package format reads and writes record batches in the supported file
// formats: delimited text (csv, dsv, psv, tsv), JSON and Parquet.
//
// Readers and writers are built from an fs.File through fluent builders,
// so the same codec runs against any storage backend:
//
//	r, err := format.NewReaderBuilder(file).Build(ctx)
//	if err != nil { ... }
//	defer r.Close()
//
//	for {
//	    batch, err := r.Read(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// The format is resolved from the file path extension unless overridden
// with WithFormat. Recognized but unimplemented formats (orc) and unknown
// extensions fail with ErrFormatNotSupported.
//
// # Schemas
//
// Writers always require a schema. Readers accept one with WithSchema;
// without it, delimited and JSON readers infer the schema from a bounded
// sample of the input and rewind, while Parquet readers always take the
// schema from the file footer.
//
// # Layouts
//
// Delimited files carry a header row, reading and writing. JSON files are
// line-delimited by default; WithJSONLayout switches the writer to a
// single top-level array, and readers detect either layout from the first
// byte of the input.
package format
