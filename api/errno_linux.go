//go:build linux

// File: api/errno_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Translation of Linux errno values into ErrorCode.

package api

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// CodeForErrno maps a kernel errno onto the library taxonomy.
func CodeForErrno(errno syscall.Errno) ErrorCode {
	switch errno {
	case unix.EAGAIN:
		return ErrCodeWouldBlock
	case unix.EINVAL:
		return ErrCodeInvalidArgument
	case unix.ENOENT:
		return ErrCodeNotFound
	case unix.EMFILE, unix.ENFILE, unix.ENOSPC, unix.ENOMEM:
		return ErrCodeResourceExhausted
	case unix.EACCES, unix.EPERM:
		return ErrCodePermissionDenied
	case unix.ENODEV:
		return ErrCodeDeviceError
	case unix.ENAMETOOLONG:
		return ErrCodeNameTooLong
	case unix.EBADF:
		return ErrCodeClosed
	default:
		return ErrCodeSystemFailure
	}
}

// FromErrno wraps a syscall failure. Errors that are already *Error pass
// through unchanged; non-errno errors become SystemFailure.
func FromErrno(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return &Error{Code: ErrCodeSystemFailure, Op: op, Message: err.Error()}
	}
	return &Error{Code: CodeForErrno(errno), Op: op, Errno: errno}
}
