//go:build linux

// File: eventfd/eventfd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Counter wraps a kernel eventfd(2) object.

// Package eventfd wraps Linux's eventfd(2): a kernel-held 64-bit counter that
// becomes readable while non-zero.
package eventfd

import (
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/internal/fdio"
)

const (
	// MaxInitial is the largest initial value eventfd2 accepts (unsigned int).
	MaxInitial = math.MaxUint32
	// MaxValue is the largest value the counter can hold or be written.
	MaxValue = math.MaxUint64 - 1
)

// Config holds creation parameters. They are fixed for the counter's life.
type Config struct {
	Initial     uint64 // starting counter value, clamped to MaxInitial unless Strict
	Semaphore   bool   // reads return 1 and decrement instead of draining
	NonBlocking bool   // EAGAIN instead of blocking
	CloseOnExec bool   // FD_CLOEXEC on the descriptor
	Strict      bool   // reject out-of-range values instead of clamping them

	Logger logrus.FieldLogger // defaults to the control logger
}

// DefaultConfig returns an accumulator-mode blocking counter starting at 0.
func DefaultConfig() Config {
	return Config{}
}

// Counter represents a Linux eventfd object.
type Counter struct {
	h           *fdio.Handle
	semaphore   bool
	nonBlocking bool
	closeOnExec bool
	strict      bool
	log         logrus.FieldLogger
}

// Ensure compliance with api.Descriptor.
var _ api.Descriptor = (*Counter)(nil)

// New creates an eventfd configured by cfg.
func New(cfg Config) (*Counter, error) {
	const op = "eventfd.create"
	log := control.LoggerFor(api.TypeEventFD, cfg.Logger)

	initial := cfg.Initial
	if initial > MaxInitial {
		if cfg.Strict {
			return nil, control.ObserveError(api.TypeEventFD, "create",
				api.InvalidArgument(op, "initial value %d exceeds %d", initial, uint64(MaxInitial)))
		}
		log.WithField("initial", initial).Debug("initial value clamped")
		initial = MaxInitial
	}

	flags := 0
	if cfg.Semaphore {
		flags |= unix.EFD_SEMAPHORE
	}
	if cfg.NonBlocking {
		flags |= unix.EFD_NONBLOCK
	}
	if cfg.CloseOnExec {
		flags |= unix.EFD_CLOEXEC
	}

	fd, err := unix.Eventfd(uint(initial), flags)
	if err != nil {
		return nil, control.ObserveError(api.TypeEventFD, "create", api.FromErrno(op, err))
	}
	return &Counter{
		h:           fdio.Own(api.TypeEventFD, fd, log),
		semaphore:   cfg.Semaphore,
		nonBlocking: cfg.NonBlocking,
		closeOnExec: cfg.CloseOnExec,
		strict:      cfg.Strict,
		log:         log,
	}, nil
}

// Read blocks until the counter is non-zero (or fails with WouldBlock on a
// non-blocking counter) and returns the value read. In semaphore mode it
// returns 1 and decrements; otherwise it returns the whole value and resets
// the counter to 0.
func (c *Counter) Read() (uint64, error) {
	const op = "eventfd.read"
	fd, err := c.h.Get(op)
	if err != nil {
		return 0, err
	}
	v, err := fdio.ReadUint64(fd)
	if err != nil {
		return 0, control.ObserveError(api.TypeEventFD, "read", api.FromErrno(op, err))
	}
	control.ObserveRead(api.TypeEventFD)
	return v, nil
}

// Write adds v to the counter. MaxUint64 is clamped to MaxValue, or rejected
// when the counter was created Strict. If the addition would overflow, Write
// blocks or fails with WouldBlock.
func (c *Counter) Write(v uint64) error {
	const op = "eventfd.write"
	fd, err := c.h.Get(op)
	if err != nil {
		return err
	}
	if v > MaxValue {
		if c.strict {
			return control.ObserveError(api.TypeEventFD, "write",
				api.InvalidArgument(op, "value %d exceeds %d", v, uint64(MaxValue)))
		}
		v = MaxValue
	}
	if err := fdio.WriteUint64(fd, v); err != nil {
		return control.ObserveError(api.TypeEventFD, "write", api.FromErrno(op, err))
	}
	return nil
}

// Notify adds 1 to the counter.
func (c *Counter) Notify() error {
	return c.Write(1)
}

// Fd returns the underlying descriptor for use with poll/epoll/select.
func (c *Counter) Fd() int { return c.h.Fd() }

// Type returns api.TypeEventFD.
func (c *Counter) Type() api.Type { return api.TypeEventFD }

// Semaphore reports whether reads decrement by one.
func (c *Counter) Semaphore() bool { return c.semaphore }

// NonBlocking reports whether operations fail with WouldBlock instead of blocking.
func (c *Counter) NonBlocking() bool { return c.nonBlocking }

// CloseOnExec reports whether FD_CLOEXEC was requested.
func (c *Counter) CloseOnExec() bool { return c.closeOnExec }

// Close releases the descriptor. Repeated calls return nil.
func (c *Counter) Close() error {
	return c.h.Close()
}
