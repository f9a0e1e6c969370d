package answer

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a value does not conform to an answer type.
var ErrTypeMismatch = errors.New("answer type mismatch")

// MismatchError describes a single value that failed to encode or decode.
type MismatchError struct {
	Kind   Kind   // Expected answer kind
	Reason string // Human-readable reason for failure
	Value  any    // The offending value
}

func (e *MismatchError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %T)", e.Kind, e.Reason, e.Value)
}

func (e *MismatchError) Unwrap() error { return ErrTypeMismatch }

func mismatch(kind Kind, value any, format string, args ...any) error {
	return &MismatchError{Kind: kind, Reason: fmt.Sprintf(format, args...), Value: value}
}
