package fin

import "errors"

var (
	// ErrInvalidFieldPath is returned when a dotted path does not name a
	// declared section attribute.
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrInvalidValue is returned when a correction value cannot be applied
	// to its target (non-numeric amount, unknown scale, bad currency code).
	ErrInvalidValue = errors.New("invalid value")
)
