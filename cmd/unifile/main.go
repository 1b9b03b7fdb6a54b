// Command unifile converts data files between formats and backends and
// generates synthetic data files from a sample.
//
// Usage:
//
//	unifile convert -i SRC -o DST [-batch-size N]
//	unifile generate -i SAMPLE -o OUT[,OUT...] [-size N] [-null-density F] [-true-density F] [-rate N]
//
// Locations are unifile location strings (plain paths, file://, s3://,
// s3a://, minio://); formats follow the location extension. Backend
// properties such as region or endpoint are passed with repeated
// -property key=value flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/unifile"
	"github.com/hupe1980/unifile/format"
	"github.com/hupe1980/unifile/fs"
	"github.com/hupe1980/unifile/record"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()

	var err error

	switch os.Args[1] {
	case "convert":
		err = runConvert(ctx, os.Args[2:])
	case "generate":
		err = runGenerate(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unifile: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "unifile:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: unifile <command> [flags]

Commands:
  convert   copy records between locations, converting by extension
  generate  write synthetic records shaped like a sample file

Run "unifile <command> -h" for flags.`)
}

// commonFlags are the flags shared by every subcommand.
type commonFlags struct {
	properties map[string]string
	verbose    bool
}

func registerCommonFlags(fls *flag.FlagSet) *commonFlags {
	common := &commonFlags{properties: map[string]string{}}

	fls.BoolVar(&common.verbose, "v", false, "enable debug logging")
	fls.Func("property", "backend property as key=value (repeatable)", func(s string) error {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return fmt.Errorf("property %q is not key=value", s)
		}
		common.properties[key] = value
		return nil
	})

	return common
}

func (c *commonFlags) logger() *unifile.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	return unifile.NewTextLogger(level)
}

func (c *commonFlags) fileSystem(ctx context.Context, location string, logger *unifile.Logger) (fs.FileSystem, error) {
	return unifile.NewFileSystemBuilder(location).
		WithProperties(c.properties).
		WithLogger(logger).
		Build(ctx)
}

func runConvert(ctx context.Context, args []string) error {
	fls := flag.NewFlagSet("convert", flag.ExitOnError)
	common := registerCommonFlags(fls)
	input := fls.String("i", "", "input location")
	output := fls.String("o", "", "output location")
	batchSize := fls.Int("batch-size", format.DefaultBatchSize, "rows per batch")

	if err := fls.Parse(args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return errors.New("convert: -i and -o are required")
	}

	logger := common.logger()

	rows, err := convert(ctx, common, *input, *output, *batchSize, logger)
	logger.LogConvert(ctx, *input, *output, rows, err)

	return err
}

// convert streams every record from input to output, aborting the output
// writer on any mid-stream failure.
func convert(ctx context.Context, common *commonFlags, input, output string, batchSize int, logger *unifile.Logger) (int64, error) {
	srcFS, err := common.fileSystem(ctx, input, logger)
	if err != nil {
		return 0, err
	}

	src, err := srcFS.Open(ctx, input)
	if err != nil {
		return 0, err
	}

	r, err := format.NewReaderBuilder(src).WithBatchSize(batchSize).Build(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	dstFS, err := common.fileSystem(ctx, output, logger)
	if err != nil {
		return 0, err
	}

	dst, err := dstFS.Create(ctx, output)
	if err != nil {
		return 0, err
	}

	w, err := format.NewWriterBuilder(dst, r.Schema()).Build(ctx)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	var rows int64

	for {
		batch, err := r.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, err
		}

		if err := w.Write(ctx, batch); err != nil {
			return rows, err
		}

		rows += int64(batch.NumRows())
	}

	if err := w.Close(); err != nil {
		return rows, err
	}

	return rows, nil
}

func runGenerate(ctx context.Context, args []string) error {
	fls := flag.NewFlagSet("generate", flag.ExitOnError)
	common := registerCommonFlags(fls)
	sample := fls.String("i", "", "sample location providing the schema")
	outputs := fls.String("o", "", "comma-separated output locations")
	size := fls.Int("size", 1, "rows per output")
	nullDensity := fls.Float64("null-density", 0, "probability in [0,1] of null for nullable fields")
	trueDensity := fls.Float64("true-density", 0.5, "probability in [0,1] of true for bool fields")
	rowRate := fls.Int("rate", 0, "rows per second across all outputs, 0 is unlimited")

	if err := fls.Parse(args); err != nil {
		return err
	}
	if *sample == "" || *outputs == "" {
		return errors.New("generate: -i and -o are required")
	}
	if *size < 0 {
		return errors.New("generate: -size must not be negative")
	}

	logger := common.logger()

	schema, err := sampleSchema(ctx, common, *sample, logger)
	if err != nil {
		return err
	}

	gen := record.NewGenerator(schema, func(o *record.GeneratorOptions) {
		o.NullDensity = *nullDensity
		o.TrueDensity = *trueDensity
	})

	// All outputs receive the same synthetic dataset.
	var batches []*record.Batch
	for remaining := *size; remaining > 0; {
		n := min(remaining, format.DefaultBatchSize)
		batches = append(batches, gen.Batch(n))
		remaining -= n
	}

	var limiter *rate.Limiter
	if *rowRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rowRate), format.DefaultBatchSize)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, output := range strings.Split(*outputs, ",") {
		g.Go(func() error {
			err := writeGenerated(ctx, common, output, schema, batches, limiter, logger)
			logger.LogGenerate(ctx, output, *size, err)
			return err
		})
	}

	return g.Wait()
}

// sampleSchema resolves the sample location and returns the schema its
// reader reports (inferred for delimited and JSON input, footer-provided
// for parquet).
func sampleSchema(ctx context.Context, common *commonFlags, sample string, logger *unifile.Logger) (record.Schema, error) {
	fsys, err := common.fileSystem(ctx, sample, logger)
	if err != nil {
		return record.Schema{}, err
	}

	file, err := fsys.Open(ctx, sample)
	if err != nil {
		return record.Schema{}, err
	}

	r, err := format.NewReaderBuilder(file).Build(ctx)
	if err != nil {
		return record.Schema{}, err
	}
	defer r.Close()

	return r.Schema(), nil
}

func writeGenerated(ctx context.Context, common *commonFlags, output string, schema record.Schema, batches []*record.Batch, limiter *rate.Limiter, logger *unifile.Logger) error {
	fsys, err := common.fileSystem(ctx, output, logger)
	if err != nil {
		return err
	}

	file, err := fsys.Create(ctx, output)
	if err != nil {
		return err
	}

	w, err := format.NewWriterBuilder(file, schema).Build(ctx)
	if err != nil {
		return err
	}
	defer w.Abort()

	for _, batch := range batches {
		if limiter != nil {
			if err := limiter.WaitN(ctx, batch.NumRows()); err != nil {
				return err
			}
		}

		if err := w.Write(ctx, batch); err != nil {
			return err
		}
	}

	return w.Close()
}
