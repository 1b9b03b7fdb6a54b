package record

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies the value type of a field.
type Type uint8

const (
	// TypeBool is a boolean field.
	TypeBool Type = iota + 1
	// TypeInt64 is a 64-bit signed integer field.
	TypeInt64
	// TypeFloat64 is a 64-bit floating point field.
	TypeFloat64
	// TypeString is a UTF-8 string field.
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

var (
	// ErrEmptyFieldName is returned when a schema field has no name.
	ErrEmptyFieldName = errors.New("field name must not be empty")
)

// ErrDuplicateField indicates two schema fields share a name.
type ErrDuplicateField struct {
	Name string
}

func (e *ErrDuplicateField) Error() string {
	return fmt.Sprintf("duplicate field name: %q", e.Name)
}

// ErrTypeMismatch indicates a value does not match its field's type.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrTypeMismatch struct {
	Field string
	Type  Type
	Value any
	cause error
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("field %q expects %s, got %T", e.Field, e.Type, e.Value)
}

func (e *ErrTypeMismatch) Unwrap() error { return e.cause }

// ErrNotNullable indicates a null value was appended to a non-nullable field.
type ErrNotNullable struct {
	Field string
}

func (e *ErrNotNullable) Error() string {
	return fmt.Sprintf("field %q is not nullable", e.Field)
}

// Field describes one named, typed column of a schema.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema is an immutable ordered set of fields. The zero value is an empty
// schema.
type Schema struct {
	fields []Field
	byName map[string]int
}

// NewSchema creates a schema from the given fields. Field names must be
// non-empty and unique.
func NewSchema(fields ...Field) (Schema, error) {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Schema{}, ErrEmptyFieldName
		}
		if _, ok := byName[f.Name]; ok {
			return Schema{}, &ErrDuplicateField{Name: f.Name}
		}
		byName[f.Name] = i
	}
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return Schema{fields: fs, byName: byName}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for tests and
// package-level declarations.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s Schema) Len() int { return len(s.fields) }

// Field returns the field at index i.
func (s Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the field list.
func (s Schema) Fields() []Field {
	fs := make([]Field, len(s.fields))
	copy(fs, s.fields)
	return fs
}

// FieldByName returns the field with the given name and its index.
func (s Schema) FieldByName(name string) (Field, int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, -1, false
	}
	return s.fields[i], i, true
}

// Equal reports whether both schemas have identical fields in identical
// order, including nullability.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		if f != other.fields[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether other matches this schema up to widened
// nullability: same field names and types in the same order, where a field
// that is nullable here must stay nullable in other, but a non-nullable
// field here may have become nullable there. Schema inference widens
// nullability when it cannot prove a column never holds nulls, so a
// round-tripped schema is compared with Compatible rather than Equal.
func (s Schema) Compatible(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		o := other.fields[i]
		if f.Name != o.Name || f.Type != o.Type {
			return false
		}
		if f.Nullable && !o.Nullable {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	var sb strings.Builder
	sb.WriteString("schema{")
	for i, f := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(f.Type.String())
		if f.Nullable {
			sb.WriteString("?")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
