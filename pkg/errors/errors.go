// Package errors provides coded errors for taskmap.
//
// Every failure the store, storage backends, bridge and CLI report carries a
// [Code] from a small taxonomy, so callers can branch on the kind of failure
// without matching message text:
//
//   - INVALID_*: rejected input (malformed snapshot, illegal move, bad name)
//   - NOT_FOUND: stale node id or missing stored snapshot
//   - LAYOUT_FAILED: the layered layout could not be computed
//   - STORAGE_ERROR: a persistence backend failed
//   - CANCELLED: the user dismissed a save/open dialog
//
// Store operations themselves never return these for stale ids; they are
// silent no-ops that report false.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTopology, "cannot move %s under itself", id)
//	if errors.Is(err, errors.ErrCodeInvalidTopology) {
//	    // rejected move
//	}
//
//	// Sentinels compare by code through the standard library too.
//	if stderrors.Is(err, errors.ErrNotFound) { ... }
//
//	err = errors.Wrap(errors.ErrCodeStorage, cause, "write snapshot %q", name)
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure kind.
type Code string

const (
	// Rejected input
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidSnapshot Code = "INVALID_SNAPSHOT"
	ErrCodeInvalidTopology Code = "INVALID_TOPOLOGY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidName     Code = "INVALID_NAME"

	ErrCodeNotFound Code = "NOT_FOUND"

	ErrCodeLayoutFailed Code = "LAYOUT_FAILED"

	// Persistence
	ErrCodeStorage   Code = "STORAGE_ERROR"
	ErrCodeCancelled Code = "CANCELLED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Sentinels for use with the standard errors.Is. Any *Error with the same
// code matches.
var (
	ErrNotFound     = &Error{Code: ErrCodeNotFound, Message: "not found"}
	ErrCancelled    = &Error{Code: ErrCodeCancelled, Message: "cancelled"}
	ErrLayoutFailed = &Error{Code: ErrCodeLayoutFailed, Message: "layout failed"}
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether the first *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage is the message without the code prefix or cause. Errors from
// outside this package are returned as-is.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

// Detail is UserMessage followed by the underlying cause, if any.
func Detail(err error) string {
	e, ok := asError(err)
	if !ok {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// IsCancelled reports whether a cancellation appears anywhere in err's chain.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsNotFound reports whether err refers to a missing node or stored snapshot
// anywhere in its chain.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
