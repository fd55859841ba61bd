//go:build linux

// File: internal/fdio/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw read/write helpers. EINTR is retried; every other errno, EAGAIN
// included, is returned to the caller untouched.

package fdio

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// SizeofUint64 is the payload size of eventfd and timerfd reads.
const SizeofUint64 = 8

// Read performs one read(2), restarting on EINTR.
func Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Write performs one write(2), restarting on EINTR.
func Write(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// ReadUint64 reads one host-order 64-bit word. A short read is reported as
// EIO, the same way the kernel contract is broken for any other reason.
func ReadUint64(fd int) (uint64, error) {
	var buf [SizeofUint64]byte
	n, err := Read(fd, buf[:])
	if err != nil {
		return 0, err
	}
	if n != SizeofUint64 {
		return 0, unix.EIO
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

// WriteUint64 writes one host-order 64-bit word.
func WriteUint64(fd int, v uint64) error {
	var buf [SizeofUint64]byte
	binary.NativeEndian.PutUint64(buf[:], v)
	n, err := Write(fd, buf[:])
	if err != nil {
		return err
	}
	if n != SizeofUint64 {
		return unix.EIO
	}
	return nil
}

// SetFlags applies O_NONBLOCK and FD_CLOEXEC to an existing descriptor.
func SetFlags(fd int, nonBlocking, closeOnExec bool) error {
	if err := unix.SetNonblock(fd, nonBlocking); err != nil {
		return err
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if closeOnExec {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return err
}

// Flags reports O_NONBLOCK and FD_CLOEXEC as currently set on fd.
func Flags(fd int) (nonBlocking, closeOnExec bool, err error) {
	fl, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, false, err
	}
	fdfl, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return false, false, err
	}
	return fl&unix.O_NONBLOCK != 0, fdfl&unix.FD_CLOEXEC != 0, nil
}
