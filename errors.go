package unifile

import "fmt"

// ErrSchemeNotSupported indicates a location scheme with no registered
// backend.
type ErrSchemeNotSupported struct {
	Scheme string
}

func (e *ErrSchemeNotSupported) Error() string {
	return fmt.Sprintf("scheme %q not supported", e.Scheme)
}

// ErrMalformedLocation indicates a location string that cannot be parsed.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrMalformedLocation struct {
	Location string
	cause    error
}

func (e *ErrMalformedLocation) Error() string {
	return fmt.Sprintf("malformed location %q", e.Location)
}

func (e *ErrMalformedLocation) Unwrap() error { return e.cause }

// ErrInvalidProperty indicates a builder property with an unusable value.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidProperty struct {
	Key   string
	Value string
	cause error
}

func (e *ErrInvalidProperty) Error() string {
	return fmt.Sprintf("invalid property %s=%q", e.Key, e.Value)
}

func (e *ErrInvalidProperty) Unwrap() error { return e.cause }
