//go:build linux

// File: internal/fdio/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Close-once ownership of a single kernel descriptor.

package fdio

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
)

// Handle owns one descriptor. The descriptor is released by the first Close;
// later calls are no-ops. Closing while another goroutine is blocked in a
// syscall on the same descriptor is a misuse.
type Handle struct {
	fd  atomic.Int32
	typ api.Type
	log logrus.FieldLogger
}

// Own takes ownership of fd and records it in the control inventory.
func Own(typ api.Type, fd int, log logrus.FieldLogger) *Handle {
	h := &Handle{typ: typ, log: log}
	h.fd.Store(int32(fd))
	control.Opened(typ, fd)
	log.WithField("fd", fd).Debug("descriptor created")
	return h
}

// Fd returns the descriptor, or -1 once closed.
func (h *Handle) Fd() int {
	return int(h.fd.Load())
}

// Type returns the kernel object type.
func (h *Handle) Type() api.Type {
	return h.typ
}

// Get returns the live descriptor or a Closed error tagged with op.
func (h *Handle) Get(op string) (int, error) {
	fd := h.Fd()
	if fd < 0 {
		return -1, api.Closed(op)
	}
	return fd, nil
}

// Close releases the descriptor exactly once.
func (h *Handle) Close() error {
	fd := int(h.fd.Swap(-1))
	if fd < 0 {
		return nil
	}
	control.Released(h.typ, fd)
	h.log.WithField("fd", fd).Debug("descriptor closed")
	// Linux releases the descriptor even when close(2) reports an error,
	// so the handle is never retried.
	if err := unix.Close(fd); err != nil {
		return control.ObserveError(h.typ, "close", api.FromErrno(h.typ.String()+".close", err))
	}
	return nil
}

// CloseQuietly closes a descriptor that never made it into a Handle, used on
// failed construction paths.
func CloseQuietly(fd int, log logrus.FieldLogger) {
	if fd < 0 {
		return
	}
	if err := unix.Close(fd); err != nil {
		log.WithError(err).WithField("fd", fd).Warn("close after failed setup")
	}
}
