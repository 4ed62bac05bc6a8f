package analyze

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every snapshot rejection, so callers can skip
// the evaluation with a single errors.Is check.
var ErrValidation = errors.New("invalid indicator snapshot")

// ValidationError reports a missing or malformed snapshot field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RangeError reports an indicator value outside its declared domain.
// It is handled exactly like a ValidationError.
type RangeError struct {
	Field string
	Value interface{}
	Rule  string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: field %q value %v violates %s", ErrValidation, e.Field, e.Value, e.Rule)
}

func (e *RangeError) Unwrap() error {
	return ErrValidation
}

// ErrorKind returns a short label for logs and metrics
func ErrorKind(err error) string {
	var ve *ValidationError
	var re *RangeError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &re):
		return "range"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	return "internal"
}
