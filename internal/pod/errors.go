package pod

import (
	"errors"
	"fmt"
)

// Common layout errors.
var (
	ErrFieldOverlap      = errors.New("header fields overlap")
	ErrNegativeOffset    = errors.New("negative offset or size")
	ErrDuplicateField    = errors.New("duplicate header field")
	ErrMisalignedField   = errors.New("misaligned header field")
	ErrHeaderSize        = errors.New("header size does not match field sizes")
	ErrFieldSize         = errors.New("field size does not match shape")
	ErrInvalidShape      = errors.New("invalid shape")
	ErrInvalidInnerShape = errors.New("invalid dim0 inner shape")
	ErrUnknownField      = errors.New("unknown header field")
)

// LayoutError provides detailed information about a rejected layout.
type LayoutError struct {
	Err     error  // One of the sentinel errors above.
	Field   string // Primary field involved.
	Field2  string // Secondary field (for overlap errors).
	Details string
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	if e.Field2 != "" {
		return fmt.Sprintf("%v: fields %s and %s: %s", e.Err, e.Field, e.Field2, e.Details)
	}
	if e.Field != "" {
		return fmt.Sprintf("%v: field %s: %s", e.Err, e.Field, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Details)
}

// Unwrap returns the sentinel error so callers can use errors.Is.
func (e *LayoutError) Unwrap() error {
	return e.Err
}
