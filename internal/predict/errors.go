package predict

import (
	"errors"
	"fmt"

	"ckdserve/internal/artifact"
	"ckdserve/internal/features"
)

var (
	// ErrUnknownFixture is returned for fixture ids outside the built-in set.
	ErrUnknownFixture = errors.New("test case not found")
	// ErrInferenceFailure marks unexpected failures inside the model call.
	ErrInferenceFailure = errors.New("inference failure")
)

type unknownFixtureError struct{ id int }

func (e unknownFixtureError) Error() string { return fmt.Sprintf("test case %d not found", e.id) }
func (e unknownFixtureError) Is(target error) bool { return target == ErrUnknownFixture }

// InferenceError wraps a failure raised by the classifier or label decoder.
type InferenceError struct{ Err error }

func (e *InferenceError) Error() string { return "inference failure: " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }
func (e *InferenceError) Is(target error) bool { return target == ErrInferenceFailure }

// IsUnknownFixture reports whether err is an unknown fixture id.
func IsUnknownFixture(err error) bool { return errors.Is(err, ErrUnknownFixture) }

// IsInferenceFailure reports whether err came from the model call.
func IsInferenceFailure(err error) bool { return errors.Is(err, ErrInferenceFailure) }

// errorKind labels err for metrics and logs.
func errorKind(err error) string {
	if k := artifact.Kind(err); k != "" {
		return k
	}
	switch {
	case errors.Is(err, features.ErrNoFeaturesProvided):
		return "no_features"
	case features.IsValidation(err):
		return "validation"
	case IsUnknownFixture(err):
		return "unknown_fixture"
	case IsInferenceFailure(err):
		return "inference"
	default:
		return "internal"
	}
}
