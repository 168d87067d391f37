package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoFeaturesProvided is returned when every schema field is missing.
var ErrNoFeaturesProvided = errors.New("no valid input features provided")

// FieldErrorKind distinguishes range failures from shape failures.
type FieldErrorKind string

const (
	OutOfRange  FieldErrorKind = "out_of_range"
	TypeInvalid FieldErrorKind = "type_invalid"
)

// FieldError describes one rejected field.
type FieldError struct {
	Kind  FieldErrorKind
	Field string
	// Value and Bound are only set for OutOfRange.
	Value float64
	Bound string
}

func (e *FieldError) Error() string {
	if e.Kind == TypeInvalid {
		return fmt.Sprintf("field %s: value is not a valid number", e.Field)
	}
	return fmt.Sprintf("field %s: value %g must be %s", e.Field, e.Value, e.Bound)
}

// ValidationError aggregates every field error found in a record.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual field errors to errors.Is/As.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f
	}
	return out
}

// IsOutOfRange reports whether err carries an out-of-range error for field.
// An empty field matches any field.
func IsOutOfRange(err error, field string) bool {
	return hasFieldError(err, OutOfRange, field)
}

// IsTypeInvalid reports whether err carries a type error for field.
func IsTypeInvalid(err error, field string) bool {
	return hasFieldError(err, TypeInvalid, field)
}

// IsValidation reports whether err is a per-field validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func hasFieldError(err error, kind FieldErrorKind, field string) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			if f.Kind == kind && (field == "" || f.Field == field) {
				return true
			}
		}
		return false
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Kind == kind && (field == "" || fe.Field == field)
	}
	return false
}
