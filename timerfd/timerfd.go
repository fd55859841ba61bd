//go:build linux

// File: timerfd/timerfd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package timerfd wraps Linux's timerfd_create(2) family: a one-shot or
// periodic timer that becomes readable on expiry and reports how many
// expirations happened since the last read.
package timerfd

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/internal/fdio"
)

// Clock selects the clock a timer measures against. It is fixed at creation.
type Clock int

const (
	// Monotonic is unaffected by wall-clock jumps.
	Monotonic Clock = iota
	// Realtime follows the system wall clock and may jump.
	Realtime
)

func (c Clock) id() int {
	if c == Realtime {
		return unix.CLOCK_REALTIME
	}
	return unix.CLOCK_MONOTONIC
}

func (c Clock) String() string {
	if c == Realtime {
		return "realtime"
	}
	return "monotonic"
}

// ParseClock accepts "monotonic" and "realtime"; the empty string is Monotonic.
func ParseClock(s string) (Clock, error) {
	switch s {
	case "", "monotonic":
		return Monotonic, nil
	case "realtime":
		return Realtime, nil
	default:
		return Monotonic, api.InvalidArgument("timerfd.clock", "unknown clock %q", s)
	}
}

// Config holds creation parameters.
type Config struct {
	Clock       Clock
	NonBlocking bool
	CloseOnExec bool

	Logger logrus.FieldLogger
}

// DefaultConfig returns a blocking monotonic timer configuration.
func DefaultConfig() Config {
	return Config{Clock: Monotonic}
}

// Setting is a timer programming. Value is the time left until the next
// expiry (zero: disarmed); Interval is the period (zero: one-shot).
type Setting struct {
	Value    time.Duration
	Interval time.Duration
}

// Disarmed reports whether the setting describes a stopped timer.
func (s Setting) Disarmed() bool {
	return s.Value == 0
}

// Timer represents a Linux timerfd object.
type Timer struct {
	h           *fdio.Handle
	clock       Clock
	nonBlocking bool
	closeOnExec bool
	log         logrus.FieldLogger
}

// Ensure compliance with api.Descriptor.
var _ api.Descriptor = (*Timer)(nil)

// New creates a disarmed timer.
func New(cfg Config) (*Timer, error) {
	const op = "timerfd.create"
	if cfg.Clock != Monotonic && cfg.Clock != Realtime {
		return nil, control.ObserveError(api.TypeTimerFD, "create",
			api.InvalidArgument(op, "unknown clock %d", int(cfg.Clock)))
	}
	log := control.LoggerFor(api.TypeTimerFD, cfg.Logger)

	flags := 0
	if cfg.NonBlocking {
		flags |= unix.TFD_NONBLOCK
	}
	if cfg.CloseOnExec {
		flags |= unix.TFD_CLOEXEC
	}
	fd, err := unix.TimerfdCreate(cfg.Clock.id(), flags)
	if err != nil {
		return nil, control.ObserveError(api.TypeTimerFD, "create", api.FromErrno(op, err))
	}
	return &Timer{
		h:           fdio.Own(api.TypeTimerFD, fd, log.WithField("clock", cfg.Clock.String())),
		clock:       cfg.Clock,
		nonBlocking: cfg.NonBlocking,
		closeOnExec: cfg.CloseOnExec,
		log:         log,
	}, nil
}

// Arm programs the timer and returns the previous setting, swapped
// atomically by the kernel. initial == 0 disarms the timer; interval == 0
// makes it one-shot. With absolute, initial is a reading of the timer's
// clock (see Now) rather than a delay. Negative values fail with
// InvalidArgument.
func (t *Timer) Arm(initial, interval time.Duration, absolute bool) (Setting, error) {
	const op = "timerfd.arm"
	fd, err := t.h.Get(op)
	if err != nil {
		return Setting{}, err
	}
	if initial < 0 || interval < 0 {
		return Setting{}, control.ObserveError(api.TypeTimerFD, "arm",
			api.InvalidArgument(op, "negative timer value (initial %v, interval %v)", initial, interval))
	}

	flags := 0
	if absolute {
		flags |= unix.TFD_TIMER_ABSTIME
	}
	next := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(initial.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	var prev unix.ItimerSpec
	if err := unix.TimerfdSettime(fd, flags, &next, &prev); err != nil {
		return Setting{}, control.ObserveError(api.TypeTimerFD, "arm", api.FromErrno(op, err))
	}
	t.log.WithFields(logrus.Fields{
		"fd":       fd,
		"initial":  initial,
		"interval": interval,
		"absolute": absolute,
	}).Debug("timer armed")
	return fromItimerspec(prev), nil
}

// ArmAt schedules the first expiry at the wall-clock instant when. Only
// realtime timers can do this.
func (t *Timer) ArmAt(when time.Time, interval time.Duration) (Setting, error) {
	if t.clock != Realtime {
		return Setting{}, control.ObserveError(api.TypeTimerFD, "arm",
			api.InvalidArgument("timerfd.arm", "wall-clock instant on a %s timer", t.clock))
	}
	ns := when.UnixNano()
	if ns <= 0 {
		return Setting{}, control.ObserveError(api.TypeTimerFD, "arm",
			api.InvalidArgument("timerfd.arm", "instant %v is not after the epoch", when))
	}
	return t.Arm(time.Duration(ns), interval, true)
}

// Disarm stops the timer and returns the previous setting.
func (t *Timer) Disarm() (Setting, error) {
	return t.Arm(0, 0, false)
}

// Query returns the current setting without changing it. Value is always
// relative, even for a timer armed with an absolute time.
func (t *Timer) Query() (Setting, error) {
	const op = "timerfd.query"
	fd, err := t.h.Get(op)
	if err != nil {
		return Setting{}, err
	}
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(fd, &cur); err != nil {
		return Setting{}, control.ObserveError(api.TypeTimerFD, "query", api.FromErrno(op, err))
	}
	return fromItimerspec(cur), nil
}

// Read blocks until the timer has expired at least once since the last read
// (or fails with WouldBlock) and returns the number of expirations,
// including periods missed while nobody was reading.
func (t *Timer) Read() (uint64, error) {
	const op = "timerfd.read"
	fd, err := t.h.Get(op)
	if err != nil {
		return 0, err
	}
	n, err := fdio.ReadUint64(fd)
	if err != nil {
		return 0, control.ObserveError(api.TypeTimerFD, "read", api.FromErrno(op, err))
	}
	control.ObserveRead(api.TypeTimerFD)
	control.ObserveExpirations(n)
	return n, nil
}

// Now returns the current reading of the timer's clock, the reference for
// absolute Arm values.
func (t *Timer) Now() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(int32(t.clock.id()), &ts); err != nil {
		return 0, api.FromErrno("timerfd.now", err)
	}
	return time.Duration(ts.Nano()), nil
}

// Clock returns the clock selected at creation.
func (t *Timer) Clock() Clock { return t.clock }

// Fd returns the underlying descriptor for use with poll/epoll/select.
func (t *Timer) Fd() int { return t.h.Fd() }

// Type returns api.TypeTimerFD.
func (t *Timer) Type() api.Type { return api.TypeTimerFD }

// NonBlocking reports whether reads fail with WouldBlock instead of blocking.
func (t *Timer) NonBlocking() bool { return t.nonBlocking }

// CloseOnExec reports whether FD_CLOEXEC was requested.
func (t *Timer) CloseOnExec() bool { return t.closeOnExec }

// Close releases the descriptor. Repeated calls return nil.
func (t *Timer) Close() error {
	return t.h.Close()
}

func fromItimerspec(its unix.ItimerSpec) Setting {
	return Setting{
		Value:    time.Duration(its.Value.Nano()),
		Interval: time.Duration(its.Interval.Nano()),
	}
}
