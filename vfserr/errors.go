// Package vfserr defines the typed error taxonomy shared by every vfsengine
// component. Each error carries a machine-readable Code so callers can branch
// without type-asserting every concrete struct, while still supporting the
// usual errors.Is/errors.As chains through Unwrap.
package vfserr

import "fmt"

// A Code is the machine-readable classification of a vfsengine error.
type Code string

const (
	// InvalidPath is returned by the path resolver for malformed user paths.
	InvalidPath Code = "INVALID_PATH"
	// NotFound is returned when a node or content record is missing.
	NotFound Code = "NOT_FOUND"
	// AlreadyExists is returned on a path collision during create/move/copy.
	AlreadyExists Code = "ALREADY_EXISTS"
	// InvalidOperation is returned for type mismatches: read on a directory,
	// write on a directory, a cyclic move, or a non-empty directory deleted
	// without recursive=true.
	InvalidOperation Code = "INVALID_OPERATION"
	// PermissionDenied is returned when deleting a protected node.
	PermissionDenied Code = "PERMISSION_DENIED"
	// ValidationFailed is returned when a middleware validator rejects content.
	ValidationFailed Code = "VALIDATION_FAILED"
	// TransactionFailed wraps a storage adapter failure.
	TransactionFailed Code = "TRANSACTION_FAILED"
)

// Error is the concrete error type for every vfsengine failure. Message is a
// short human description; Cause, if present, is the underlying error that
// triggered this one.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause, if any, so errors.Is/errors.As see through it.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error with the given code and message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error with the given code and message, chaining cause.
func Wrap(cause error, code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a *Error with the given code, looking through
// wrapped causes the same way errors.Is would.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code == code {
				return true
			}
			err = e.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// CodeOf extracts the Code carried by err, or "" if err is not a *Error.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
