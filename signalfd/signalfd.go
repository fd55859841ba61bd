//go:build linux

// File: signalfd/signalfd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package signalfd wraps Linux's signalfd(2): a descriptor that accepts a
// fixed set of signals and yields one siginfo record per read.
//
// The signals in the set must be blocked by the caller, otherwise the kernel
// delivers them through normal dispositions and the channel stays silent.
// In Go this means blocking them on every thread that could receive them,
// or sending them thread-directed to a thread locked with LockOSThread.
package signalfd

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/internal/fdio"
)

// Config holds the watched signals and descriptor behaviour.
type Config struct {
	Signals     []unix.Signal // de-duplicated; must not be empty
	NonBlocking bool
	CloseOnExec bool

	Logger logrus.FieldLogger
}

// DefaultConfig returns a blocking configuration without signals; callers
// must fill in Signals.
func DefaultConfig() Config {
	return Config{}
}

func (cfg Config) flags() int {
	flags := 0
	if cfg.NonBlocking {
		flags |= unix.SFD_NONBLOCK
	}
	if cfg.CloseOnExec {
		flags |= unix.SFD_CLOEXEC
	}
	return flags
}

// Channel delivers a set of process signals as Records.
type Channel struct {
	h           *fdio.Handle
	set         Set
	nonBlocking bool
	closeOnExec bool
	log         logrus.FieldLogger
}

// Ensure compliance with api.Descriptor.
var _ api.Descriptor = (*Channel)(nil)

// New creates a signalfd for cfg.Signals.
func New(cfg Config) (*Channel, error) {
	const op = "signalfd.create"
	set, err := NewSet(cfg.Signals...)
	if err != nil {
		return nil, control.ObserveError(api.TypeSignalFD, "create", err)
	}
	log := control.LoggerFor(api.TypeSignalFD, cfg.Logger)

	fd, err := unix.Signalfd(-1, set.Sigset(), cfg.flags())
	if err != nil {
		return nil, control.ObserveError(api.TypeSignalFD, "create", api.FromErrno(op, err))
	}
	c := &Channel{
		h:           fdio.Own(api.TypeSignalFD, fd, log),
		set:         set,
		nonBlocking: cfg.NonBlocking,
		closeOnExec: cfg.CloseOnExec,
		log:         log,
	}
	log.WithFields(logrus.Fields{"fd": fd, "signals": set.Names()}).Debug("signal set installed")
	return c, nil
}

// Reconfigure replaces the signal set and flags in place. The descriptor
// number does not change, so registrations with a multiplexer stay valid.
// On failure the previous configuration is kept.
func (c *Channel) Reconfigure(cfg Config) error {
	const op = "signalfd.reconfigure"
	fd, err := c.h.Get(op)
	if err != nil {
		return err
	}
	set, err := NewSet(cfg.Signals...)
	if err != nil {
		return control.ObserveError(api.TypeSignalFD, "reconfigure", err)
	}

	// The kernel only swaps the mask of an existing signalfd; flags have to
	// be applied separately.
	if err := fdio.SetFlags(fd, cfg.NonBlocking, cfg.CloseOnExec); err != nil {
		return control.ObserveError(api.TypeSignalFD, "reconfigure", api.FromErrno(op, err))
	}
	if _, err := unix.Signalfd(fd, set.Sigset(), cfg.flags()); err != nil {
		_ = fdio.SetFlags(fd, c.nonBlocking, c.closeOnExec)
		return control.ObserveError(api.TypeSignalFD, "reconfigure", api.FromErrno(op, err))
	}
	c.set = set
	c.nonBlocking = cfg.NonBlocking
	c.closeOnExec = cfg.CloseOnExec
	if cfg.Logger != nil {
		c.log = cfg.Logger
	}
	c.log.WithFields(logrus.Fields{"fd": fd, "signals": set.Names()}).Debug("signal set replaced")
	return nil
}

// ReconfigureSignals replaces only the signal set, keeping current flags.
func (c *Channel) ReconfigureSignals(sigs ...unix.Signal) error {
	return c.Reconfigure(Config{
		Signals:     sigs,
		NonBlocking: c.nonBlocking,
		CloseOnExec: c.closeOnExec,
	})
}

// Read dequeues one pending signal. It blocks while none is pending, or
// fails with WouldBlock on a non-blocking channel. Several pending signals
// need several reads; they come back in kernel delivery order.
func (c *Channel) Read() (Record, error) {
	const op = "signalfd.read"
	fd, err := c.h.Get(op)
	if err != nil {
		return Record{}, err
	}
	var buf [SizeofSiginfo]byte
	n, err := fdio.Read(fd, buf[:])
	if err != nil {
		return Record{}, control.ObserveError(api.TypeSignalFD, "read", api.FromErrno(op, err))
	}
	if n != SizeofSiginfo {
		return Record{}, control.ObserveError(api.TypeSignalFD, "read", api.FromErrno(op, unix.EIO))
	}
	control.ObserveRead(api.TypeSignalFD)
	return decodeRecord(buf[:]), nil
}

// Signals returns a copy of the watched set.
func (c *Channel) Signals() Set {
	out := make(Set, len(c.set))
	copy(out, c.set)
	return out
}

// Fd returns the underlying descriptor for use with poll/epoll/select.
func (c *Channel) Fd() int { return c.h.Fd() }

// Type returns api.TypeSignalFD.
func (c *Channel) Type() api.Type { return api.TypeSignalFD }

// NonBlocking reports whether reads fail with WouldBlock instead of blocking.
func (c *Channel) NonBlocking() bool { return c.nonBlocking }

// CloseOnExec reports whether FD_CLOEXEC is set.
func (c *Channel) CloseOnExec() bool { return c.closeOnExec }

// Close releases the descriptor. Repeated calls return nil.
func (c *Channel) Close() error {
	return c.h.Close()
}
