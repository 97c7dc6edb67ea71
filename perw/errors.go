package perw

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPE is returned when the leading DOS magic is missing.
	ErrNotPE = errors.New("not a recognized executable container")

	// ErrBadSignature is returned when e_lfanew does not point at "PE\0\0".
	ErrBadSignature = errors.New("invalid PE signature")

	// ErrOptionalHeader is returned when the optional header magic cannot be read.
	ErrOptionalHeader = errors.New("optional header unavailable")

	// ErrOutOfBounds is matched by every *BoundsError.
	ErrOutOfBounds = errors.New("read outside source bounds")
)

// BoundsError reports a read that does not fit inside the declared length.
type BoundsError struct {
	Offset int64
	Length int
	Size   int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("read beyond file limits: offset %d, size %d, file len %d", e.Offset, e.Length, e.Size)
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// StructuralError is the terminal error of the pipeline: the input is not a
// usable PE image and no report is produced.
type StructuralError struct {
	Msg string
	Err error
}

func (e *StructuralError) Error() string {
	if e.Err == nil || e.Err.Error() == e.Msg {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(msg string, err error) *StructuralError {
	return &StructuralError{Msg: msg, Err: err}
}

// IsStructural reports whether err (or anything it wraps) is a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
