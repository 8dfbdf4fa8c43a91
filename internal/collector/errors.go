package collector

import (
	"fmt"

	"github.com/virtmem/memctl/internal/errors"
)

const (
	ErrUnknownCollector = errors.ErrorCode("collector_unknown_name")
	ErrConstructFailed  = errors.ErrorCode("collector_construct_failed")
	ErrDuplicateName    = errors.ErrorCode("collector_duplicate_name")
)

// Severity distinguishes a failed cycle from a dead collector.
type Severity int

const (
	// Recoverable means this cycle's data could not be produced but the
	// collector remains usable.
	Recoverable Severity = iota
	// Fatal means the collector can never produce data again.
	Fatal
)

// Error is the tagged failure type returned by Collect. The owning
// monitor skips the collector for one cycle on Recoverable and terminates
// on Fatal.
type Error struct {
	Severity Severity
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverablef builds a recoverable collection error.
func Recoverablef(format string, args ...any) *Error {
	return &Error{Severity: Recoverable, Message: fmt.Sprintf(format, args...)}
}

// Fatalf builds a fatal collection error.
func Fatalf(format string, args ...any) *Error {
	return &Error{Severity: Fatal, Message: fmt.Sprintf(format, args...)}
}

// WrapRecoverable wraps an underlying error as a recoverable failure.
func WrapRecoverable(msg string, err error) *Error {
	return &Error{Severity: Recoverable, Message: msg, Err: err}
}

// WrapFatal wraps an underlying error as a fatal failure.
func WrapFatal(msg string, err error) *Error {
	return &Error{Severity: Fatal, Message: msg, Err: err}
}

// IsRecoverable reports whether err is a recoverable collection error.
func IsRecoverable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Severity == Recoverable
}

// IsFatal reports whether err is a fatal collection error.
func IsFatal(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Severity == Fatal
}
