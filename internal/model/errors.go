package model

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups that completed but matched nothing, such as an
// entity with no annual report in the search window. It is a normal domain
// outcome, distinct from a service failure.
var ErrNotFound = errors.New("not found")

// NotFoundf returns a formatted error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ExternalServiceError marks a failure of an upstream dependency after
// retries were exhausted. Service names the dependency for the operator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// NewExternalServiceError wraps err as a failure of the named service.
func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

// SchemaError marks a structured-extraction response that could not be
// decoded. Raw carries a bounded prefix of the offending payload for
// diagnosis.
type SchemaError struct {
	Err error
	Raw string
}

// SchemaErrorRawLimit bounds how much of the raw payload a SchemaError keeps.
const SchemaErrorRawLimit = 1000

func (e *SchemaError) Error() string {
	return fmt.Sprintf("extraction response did not match schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NewSchemaError wraps a decode failure, keeping at most SchemaErrorRawLimit
// characters of the raw payload.
func NewSchemaError(err error, raw string) error {
	runes := []rune(raw)
	if len(runes) > SchemaErrorRawLimit {
		raw = string(runes[:SchemaErrorRawLimit])
	}
	return &SchemaError{Err: err, Raw: raw}
}

// MissingInputError marks an entity that lacks the data a stage requires,
// such as a roster entry with no registry code.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Field)
}

// NewMissingInputError names the absent field.
func NewMissingInputError(field string) error {
	return &MissingInputError{Field: field}
}
