package cmdutils

import (
	"github.com/pkg/errors"
)

// ErrSilent is returned when the error was already reported to the
// user and must not be printed again.
var ErrSilent = &SilentError{err: errors.New("SilentError")}

// SilentError wraps an error which was already logged. The main
// function exits with a non-zero code without printing it.
type SilentError struct {
	err error
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}

func WrapSilentError(err error) error {
	return &SilentError{err: err}
}

// IncorrectUsageError is returned when a command was called with
// invalid arguments or flags. The usage message is printed in addition
// to the error.
type IncorrectUsageError struct {
	err error
}

func (e *IncorrectUsageError) Error() string {
	return e.err.Error()
}

func (e *IncorrectUsageError) Unwrap() error {
	return e.err
}

func WrapIncorrectUsageError(err error) error {
	return &IncorrectUsageError{err: err}
}
