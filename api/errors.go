// File: api/errors.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy shared by every descriptor wrapper. Kernel failures are
// translated into a small set of codes while keeping the platform errno
// available for diagnostics and errors.Is matching.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeWouldBlock
	ErrCodeNotFound
	ErrCodeResourceExhausted
	ErrCodePermissionDenied
	ErrCodeDeviceError
	ErrCodeNameTooLong
	ErrCodeClosed
	ErrCodeSystemFailure
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeWouldBlock:
		return "would block"
	case ErrCodeNotFound:
		return "not found"
	case ErrCodeResourceExhausted:
		return "resource exhausted"
	case ErrCodePermissionDenied:
		return "permission denied"
	case ErrCodeDeviceError:
		return "device error"
	case ErrCodeNameTooLong:
		return "name too long"
	case ErrCodeClosed:
		return "descriptor closed"
	default:
		return "system failure"
	}
}

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrInvalidArgument   = &Error{Code: ErrCodeInvalidArgument}
	ErrWouldBlock        = &Error{Code: ErrCodeWouldBlock}
	ErrNotFound          = &Error{Code: ErrCodeNotFound}
	ErrResourceExhausted = &Error{Code: ErrCodeResourceExhausted}
	ErrPermissionDenied  = &Error{Code: ErrCodePermissionDenied}
	ErrDeviceError       = &Error{Code: ErrCodeDeviceError}
	ErrNameTooLong       = &Error{Code: ErrCodeNameTooLong}
	ErrClosed            = &Error{Code: ErrCodeClosed}
	ErrSystemFailure     = &Error{Code: ErrCodeSystemFailure}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string        // operation that failed, e.g. "eventfd.read"
	Errno   syscall.Errno // zero when the failure was detected before any syscall
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Errno != 0 {
		msg = fmt.Sprintf("%s: %v", msg, e.Errno)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the errno so errors.Is(err, unix.EAGAIN) keeps working.
func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// NewError creates a new structured error.
func NewError(code ErrorCode, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// InvalidArgument is a shorthand for pre-syscall validation failures.
func InvalidArgument(op, format string, args ...any) *Error {
	return NewError(ErrCodeInvalidArgument, op, fmt.Sprintf(format, args...))
}

// Closed reports use of a wrapper after Close.
func Closed(op string) *Error {
	return NewError(ErrCodeClosed, op, "")
}

// CodeOf returns the ErrorCode carried by err, ErrCodeOK for nil and
// ErrCodeSystemFailure for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeSystemFailure
}
