package status

import (
	"errors"
	"fmt"
)

// Error is a failure tagged with the operation that produced it.
type Error struct {
	// Op is the operation that failed
	Op string

	// Code is the boot status code
	Code Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Op, e.Code, uint32(e.Code))
}

// StatusCode returns the status code carried by the error.
func (e *Error) StatusCode() Code {
	return e.Code
}

// New returns an *Error for op with code c.
func New(op string, c Code) error {
	return &Error{Op: op, Code: c}
}

// Coder is implemented by errors that map onto a boot status code.
type Coder interface {
	StatusCode() Code
}

// CodeOf returns the status code carried by err or anything it wraps.
// A nil error is Success and an error without a code is Failure.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var c Coder
	if errors.As(err, &c) {
		return c.StatusCode()
	}
	return Failure
}

// Is reports whether err carries status code c.
func Is(err error, c Code) bool {
	return CodeOf(err) == c
}

// IsStatusError returns true if the error is an *Error.
func IsStatusError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Persisted combines a stage base with a code for the error status register.
func Persisted(base, c Code) uint32 {
	return uint32(base) + uint32(c)
}
