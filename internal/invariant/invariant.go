// Package invariant marks failures that indicate a defect rather than bad input.
package invariant

import (
	"errors"
	"fmt"
)

// Error is a broken internal invariant. It is never a caller mistake and must
// never be swallowed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invariant violated in %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap marks err as an invariant failure of op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Errorf builds a new invariant failure.
func Errorf(op, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries an invariant failure anywhere in its chain.
func Is(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
