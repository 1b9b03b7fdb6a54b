package record

import (
	"math/rand"
)

// GeneratorOptions configures synthetic batch generation.
type GeneratorOptions struct {
	// NullDensity is the probability in [0, 1] that a nullable field's value
	// is null. Non-nullable fields are never null. Default: 0.
	NullDensity float64

	// TrueDensity is the probability in [0, 1] that a bool field's value is
	// true. Default: 0.5.
	TrueDensity float64

	// Seed seeds the generator's random source. Default: 1.
	Seed int64
}

// Generator emits random batches conforming to a schema. It backs the
// generate CLI command and is handy for tests and load experiments.
// A Generator is not safe for concurrent use.
type Generator struct {
	schema Schema
	opts   GeneratorOptions
	rand   *rand.Rand
}

const generatedStringLen = 12

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// NewGenerator creates a generator for the given schema.
func NewGenerator(schema Schema, optFns ...func(*GeneratorOptions)) *Generator {
	opts := GeneratorOptions{
		NullDensity: 0,
		TrueDensity: 0.5,
		Seed:        1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{
		schema: schema,
		opts:   opts,
		rand:   rand.New(rand.NewSource(opts.Seed)),
	}
}

// Batch generates a batch with n random rows.
func (g *Generator) Batch(n int) *Batch {
	b := NewBuilder(g.schema)
	row := make([]any, g.schema.Len())
	for range n {
		for i := range row {
			row[i] = g.value(g.schema.Field(i))
		}
		// Values are generated to match the schema, the error path is
		// unreachable.
		_ = b.AppendRow(row...)
	}
	return b.Batch()
}

func (g *Generator) value(f Field) any {
	if f.Nullable && g.rand.Float64() < g.opts.NullDensity {
		return nil
	}
	switch f.Type {
	case TypeBool:
		return g.rand.Float64() < g.opts.TrueDensity
	case TypeInt64:
		return g.rand.Int63n(1_000_000)
	case TypeFloat64:
		return g.rand.Float64() * 1_000
	case TypeString:
		s := make([]byte, generatedStringLen)
		for i := range s {
			s[i] = letters[g.rand.Intn(len(letters))]
		}
		return string(s)
	default:
		return nil
	}
}
