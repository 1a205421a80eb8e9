// Package apperr defines the error taxonomy shared across the service.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller-supplied input that fails a precondition.
	// Recoverable by correcting the input; never retried automatically.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a dataset, band, or tag identifier absent from the store.
	ErrNotFound = errors.New("not found")
)

// InvalidArgumentf builds an ErrInvalidArgument with a formatted detail message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ExternalError reports a failure of an external system (catalog source or
// the Earth Engine job API). Source names the system; Reason carries its message.
type ExternalError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExternalError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Source, e.Err.Error())
	default:
		return e.Source
	}
}

func (e *ExternalError) Unwrap() error { return e.Err }

// External wraps err as an ExternalError from the named system.
func External(source string, err error) *ExternalError {
	return &ExternalError{Source: source, Err: err}
}

// Externalf builds an ExternalError with a formatted reason.
func Externalf(source, format string, args ...any) *ExternalError {
	return &ExternalError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// IsExternal reports whether err is (or wraps) an ExternalError.
func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}
