// Package errors implements the core's single error channel. Every
// failure raised by the metainfo set, field registry, offset table,
// transcoder, file format driver and engine surfaces as an *Error
// carrying a Kind and a human-readable message, built with the same
// fluent constructor pattern as the reference ignite package's
// baseError, but collapsed into one error type instead of a family of
// domain-specific wrappers.
package errors

import (
	stdErrors "errors"
	"fmt"
	"os"
	"syscall"
)

// Error is the sole error type raised by the core. Kind lets callers
// branch programmatically; the message and the optional field/
// savepoint/operation context are for humans and for log lines.
type Error struct {
	kind      Kind
	message   string
	cause     error
	field     string
	savepoint string
	operation string
	details   map[string]any
}

// New creates an *Error of the given kind with the given message. It
// has no cause; use Wrap to preserve an underlying error.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an *Error that preserves cause for errors.Is/errors.As
// unwrapping.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// WithField records which field was being processed.
func (e *Error) WithField(name string) *Error {
	e.field = name
	return e
}

// WithSavepoint records the savepoint's ToString() form, so messages
// can name it the way user-visible errors are expected to.
func (e *Error) WithSavepoint(text string) *Error {
	e.savepoint = text
	return e
}

// WithOperation records which engine or driver operation failed.
func (e *Error) WithOperation(op string) *Error {
	e.operation = op
	return e
}

// WithDetail attaches a single piece of structured context.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// Field returns the field name involved, if any.
func (e *Error) Field() string { return e.field }

// Savepoint returns the savepoint text form involved, if any.
func (e *Error) Savepoint() string { return e.savepoint }

// Operation returns the name of the operation that failed, if any.
func (e *Error) Operation() string { return e.operation }

// Details returns the structured context attached to the error.
func (e *Error) Details() map[string]any { return e.details }

// Error implements the error interface, assembling a message that
// names the operation, field and savepoint when present.
func (e *Error) Error() string {
	msg := e.message
	if e.operation != "" {
		msg = fmt.Sprintf("%s: %s", e.operation, msg)
	}
	if e.field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.field)
	}
	if e.savepoint != "" {
		msg = fmt.Sprintf("%s (savepoint=%s)", msg, e.savepoint)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause, enabling errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, errors.New(kind, "")) match on Kind alone,
// which is the common way callers probe for a specific failure kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !stdErrors.As(target, &other) {
		return false
	}
	return e.kind == other.kind
}

// KindOf extracts the Kind of err if it is, or wraps, an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}

// Has reports whether err is, or wraps, an *Error of the given kind.
func Has(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ClassifyIOError turns a raw filesystem error encountered by the
// format driver into an IOFailure *Error with enough syscall-derived
// context (permission denied, disk full, read-only filesystem) for an
// operator to act on, the same triage the reference ignite package's
// Classify* helpers perform before wrapping a StorageError.
func ClassifyIOError(err error, operation, path string) *Error {
	if err == nil {
		return nil
	}

	if os.IsPermission(err) {
		return Wrap(err, IOFailure, "permission denied").
			WithOperation(operation).
			WithDetail("path", path)
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return Wrap(err, IOFailure, "no space left on device").
					WithOperation(operation).
					WithDetail("path", path)
			case syscall.EROFS:
				return Wrap(err, IOFailure, "filesystem is read-only").
					WithOperation(operation).
					WithDetail("path", path)
			case syscall.EIO:
				return Wrap(err, IOFailure, "I/O error, possible hardware or corruption issue").
					WithOperation(operation).
					WithDetail("path", path)
			}
		}
	}

	return Wrap(err, IOFailure, "filesystem operation failed").
		WithOperation(operation).
		WithDetail("path", path)
}
