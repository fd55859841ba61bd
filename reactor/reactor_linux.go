//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation.

package reactor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/eventfd"
	"github.com/momentics/linuxfd/internal/fdio"
)

type registration struct {
	d  api.Descriptor
	cb Callback
}

// Reactor is an epoll instance dispatching readiness to callbacks.
type Reactor struct {
	mu     sync.Mutex
	epfd   int
	closed bool
	regs   map[int]registration
	wake   *eventfd.Counter
	events []unix.EpollEvent
	log    logrus.FieldLogger
}

// New creates an epoll instance together with the eventfd used by Wake.
func New(cfg Config) (*Reactor, error) {
	const op = "reactor.create"
	if cfg.MaxEvents < 0 {
		return nil, api.InvalidArgument(op, "negative MaxEvents %d", cfg.MaxEvents)
	}
	if cfg.MaxEvents == 0 {
		cfg.MaxEvents = defaultMaxEvents
	}
	log := cfg.Logger
	if log == nil {
		log = control.Logger().WithField("component", "reactor")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.FromErrno(op, err)
	}
	wake, err := eventfd.New(eventfd.Config{NonBlocking: true, CloseOnExec: true, Logger: log})
	if err != nil {
		fdio.CloseQuietly(epfd, log)
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wake.Fd())}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wake.Fd(), &ev); err != nil {
		_ = wake.Close()
		fdio.CloseQuietly(epfd, log)
		return nil, api.FromErrno(op, err)
	}
	return &Reactor{
		epfd:   epfd,
		regs:   make(map[int]registration),
		wake:   wake,
		events: make([]unix.EpollEvent, cfg.MaxEvents),
		log:    log,
	}, nil
}

// Register adds d to the interest list. Error readiness is always reported.
// A descriptor can be registered once; register again after Unregister.
func (r *Reactor) Register(d api.Descriptor, events EventType, cb Callback) error {
	const op = "reactor.register"
	if cb == nil {
		return api.InvalidArgument(op, "nil callback")
	}
	fd := d.Fd()
	if fd < 0 {
		return api.Closed(op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.Closed(op)
	}
	var mask uint32
	if events&Readable != 0 {
		mask |= unix.EPOLLIN
	}
	if events&Writable != 0 {
		mask |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return api.FromErrno(op, err)
	}
	r.regs[fd] = registration{d: d, cb: cb}
	r.log.WithFields(logrus.Fields{"fd": fd, "type": d.Type().String(), "events": events.String()}).
		Debug("descriptor registered")
	return nil
}

// Unregister removes d. Unknown descriptors fail with NotFound. A descriptor
// closed before Unregister has already left the kernel interest list; only
// the bookkeeping is dropped.
func (r *Reactor) Unregister(d api.Descriptor) error {
	const op = "reactor.unregister"
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.Closed(op)
	}
	fd := -1
	for k, reg := range r.regs {
		if reg.d == d {
			fd = k
			break
		}
	}
	if fd < 0 {
		return api.NewError(api.ErrCodeNotFound, op, "descriptor not registered")
	}
	delete(r.regs, fd)
	if d.Fd() < 0 {
		return nil
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && !errors.Is(err, unix.ENOENT) {
		return api.FromErrno(op, err)
	}
	return nil
}

// Len returns the number of registered descriptors.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

// Wake interrupts a Poll blocked in another goroutine.
func (r *Reactor) Wake() error {
	return r.wake.Notify()
}

// Poll waits up to timeout for readiness and dispatches callbacks. A
// negative timeout blocks until an event or Wake. It returns the number of
// callbacks run. A signal interrupting the wait is not an error.
func (r *Reactor) Poll(timeout time.Duration) (int, error) {
	const op = "reactor.poll"
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, api.Closed(op)
	}
	epfd := r.epfd
	r.mu.Unlock()

	ms := -1
	if timeout >= 0 {
		// Round up so a short positive timeout does not turn into a busy poll.
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.EpollWait(epfd, r.events, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, api.FromErrno(op, err)
	}

	dispatched := 0
	for i := 0; i < n; i++ {
		raw := r.events[i]
		fd := int(raw.Fd)
		if fd == r.wake.Fd() {
			_, _ = r.wake.Read()
			continue
		}
		r.mu.Lock()
		reg, ok := r.regs[fd]
		r.mu.Unlock()
		if !ok {
			continue
		}
		var ev EventType
		if raw.Events&unix.EPOLLIN != 0 {
			ev |= Readable
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			ev |= Writable
		}
		if raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ev |= Error
		}
		r.dispatch(reg, fd, ev)
		dispatched++
	}
	return dispatched, nil
}

func (r *Reactor) dispatch(reg registration, fd int, ev EventType) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithFields(logrus.Fields{"fd": fd, "events": ev.String(), "panic": p}).
				Error("callback panicked")
		}
	}()
	reg.cb(reg.d, ev)
}

// Run polls until ctx is done or Poll fails. Cancellation wakes a blocked
// Poll, so Run returns promptly; it returns nil in that case.
func (r *Reactor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := r.Wake(); err != nil {
			r.log.WithError(err).Debug("wake on cancel failed")
		}
	})
	defer stop()
	for ctx.Err() == nil {
		if _, err := r.Poll(-1); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the epoll instance. Registered descriptors stay open and
// remain owned by their creators. Repeated calls return nil.
func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.regs = nil
	err := api.FromErrno("reactor.close", unix.Close(r.epfd))
	return errors.Join(err, r.wake.Close())
}
