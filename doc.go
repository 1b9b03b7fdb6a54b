// Package unifile provides uniform file access for data files across local
// and object store backends.
//
// Unifile resolves a location string to a storage backend, hands out file
// handles with independent read/write streams, and layers tabular format
// codecs (CSV-family, JSON, Parquet) on top. The same calling code works
// against a local disk, Amazon S3 or a MinIO deployment.
//
// # Quick Start
//
// Reading records from a local CSV file:
//
//	ctx := context.Background()
//
//	fsys, _ := unifile.NewFileSystemBuilder("./data/input.csv").Build(ctx)
//	file, _ := fsys.Open(ctx, "./data/input.csv")
//
//	r, _ := format.NewReaderBuilder(file).Build(ctx)
//	defer r.Close()
//
//	for {
//	    batch, err := r.Read(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    // use batch
//	}
//
// Writing the same records to S3 as Parquet:
//
//	fsys, _ := unifile.NewFileSystemBuilder("s3://bucket/out.parquet").
//	    WithProperty("region", "us-east-1").
//	    Build(ctx)
//	file, _ := fsys.Create(ctx, "s3://bucket/out.parquet")
//
//	w, _ := format.NewWriterBuilder(file, r.Schema()).Build(ctx)
//	for _, batch := range batches {
//	    w.Write(ctx, batch)
//	}
//	w.Close()
//
// # Locations
//
// Locations are URI-shaped strings. Plain paths and file:// URLs select the
// local backend; s3:// and s3a:// select Amazon S3 with the host as bucket;
// minio:// selects MinIO. Backend configuration (region, endpoint, static
// credentials) travels as builder properties, never inside the location.
//
// # Packages
//
//   - fs: the FileSystem/File/Reader/Writer capability surface plus the
//     local and object store implementations
//   - fs/s3, fs/minio: object store clients for fs.NewObjectFS
//   - record: the flat typed record model (Schema, Batch, Builder)
//   - format: format detection and the per-format readers and writers
//
// # Writer Discipline
//
// Writers commit on Close and discard on Abort. Exactly one of the two must
// be called; the convert pipeline in cmd/unifile shows the intended
// defer-Abort-then-Close shape.
package unifile
