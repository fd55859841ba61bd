//go:build linux

// File: inotify/inotify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package inotify wraps Linux's inotify(7): one descriptor carrying many
// path watches, with events translated back to the watched path.
package inotify

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/internal/fdio"
)

// DefaultBufferSize holds sixteen events with maximum-length names.
const DefaultBufferSize = 16 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

// Event is one decoded inotify record.
type Event struct {
	Path    string // watched path; empty when the watch id is unknown
	Name    string // entry name inside a watched directory, or empty
	Mask    Mask
	Cookie  uint32 // pairs IN_MOVED_FROM with IN_MOVED_TO; zero otherwise
	WatchID int    // kernel watch descriptor, -1 for IN_Q_OVERFLOW
}

// Config holds creation parameters.
type Config struct {
	NonBlocking bool
	CloseOnExec bool
	BufferSize  int // used by Next; zero means DefaultBufferSize

	Logger logrus.FieldLogger
}

// DefaultConfig returns a blocking configuration with the default buffer.
func DefaultConfig() Config {
	return Config{BufferSize: DefaultBufferSize}
}

// WatchSet is an inotify instance plus the path index of its watches.
type WatchSet struct {
	h           *fdio.Handle
	idx         *index
	pending     *queue.Queue
	bufSize     int
	nonBlocking bool
	closeOnExec bool
	log         logrus.FieldLogger
}

// Ensure compliance with api.Descriptor.
var _ api.Descriptor = (*WatchSet)(nil)

// New creates an inotify instance with no watches.
func New(cfg Config) (*WatchSet, error) {
	const op = "inotify.create"
	bufSize := cfg.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if bufSize < unix.SizeofInotifyEvent {
		return nil, control.ObserveError(api.TypeInotify, "create",
			api.InvalidArgument(op, "buffer size %d below one event header", bufSize))
	}
	log := control.LoggerFor(api.TypeInotify, cfg.Logger)

	flags := 0
	if cfg.NonBlocking {
		flags |= unix.IN_NONBLOCK
	}
	if cfg.CloseOnExec {
		flags |= unix.IN_CLOEXEC
	}
	fd, err := unix.InotifyInit1(flags)
	if err != nil {
		return nil, control.ObserveError(api.TypeInotify, "create", api.FromErrno(op, err))
	}
	return &WatchSet{
		h:           fdio.Own(api.TypeInotify, fd, log),
		idx:         newIndex(),
		pending:     queue.New(),
		bufSize:     bufSize,
		nonBlocking: cfg.NonBlocking,
		closeOnExec: cfg.CloseOnExec,
		log:         log,
	}, nil
}

// Watch starts watching path for the events in mask and returns the kernel
// watch id. Watching a path again updates its mask: with replace the new
// mask replaces the old one, otherwise it is merged in. The mask must name
// at least one event kind.
//
// If the path now resolves to a different inode than before, the stale
// watch is removed. If the path resolves to an inode already watched under
// another path, the new path takes the watch over.
func (w *WatchSet) Watch(path string, mask Mask, replace bool) (int, error) {
	const op = "inotify.watch"
	fd, err := w.h.Get(op)
	if err != nil {
		return 0, err
	}
	if !mask.eventKinds() {
		return 0, control.ObserveError(api.TypeInotify, "watch",
			api.InvalidArgument(op, "mask %v has no event kind", mask).WithContext("path", path))
	}
	kmask := mask
	if !replace {
		kmask |= maskAdd
	}
	wd, err := unix.InotifyAddWatch(fd, path, uint32(kmask))
	if err != nil {
		return 0, control.ObserveError(api.TypeInotify, "watch", withPath(api.FromErrno(op, err), path))
	}

	before := w.idx.len()
	if old, ok := w.idx.wd(path); ok && old != wd {
		w.removeKernelWatch(fd, old, path)
	}
	if displaced := w.idx.bind(path, wd); displaced != "" {
		w.log.WithFields(logrus.Fields{"wd": wd, "path": path, "previous": displaced}).
			Debug("watch taken over by another path")
	}
	control.ObserveWatches(w.idx.len() - before)
	w.log.WithFields(logrus.Fields{"wd": wd, "path": path, "mask": mask.String()}).Debug("watch added")
	return wd, nil
}

func (w *WatchSet) removeKernelWatch(fd, wd int, path string) {
	if _, err := unix.InotifyRmWatch(fd, uint32(wd)); err != nil && !errors.Is(err, unix.EINVAL) {
		w.log.WithError(err).WithFields(logrus.Fields{"wd": wd, "path": path}).Warn("stale watch removal failed")
	}
}

// Unwatch removes the watch for path. An unknown path fails with NotFound.
// A watch the kernel already dropped (EINVAL) is purged silently; any other
// failure keeps the entry.
func (w *WatchSet) Unwatch(path string) error {
	const op = "inotify.unwatch"
	fd, err := w.h.Get(op)
	if err != nil {
		return err
	}
	wd, ok := w.idx.wd(path)
	if !ok {
		return control.ObserveError(api.TypeInotify, "unwatch",
			api.NewError(api.ErrCodeNotFound, op, "path not watched").WithContext("path", path))
	}
	if _, err := unix.InotifyRmWatch(fd, uint32(wd)); err != nil && !errors.Is(err, unix.EINVAL) {
		return control.ObserveError(api.TypeInotify, "unwatch", withPath(api.FromErrno(op, err), path))
	}
	if w.idx.dropPath(path) {
		control.ObserveWatches(-1)
	}
	w.log.WithFields(logrus.Fields{"wd": wd, "path": path}).Debug("watch removed")
	return nil
}

// Read returns the events of one kernel read, in kernel order. bufferSize
// bounds the read; zero means DefaultBufferSize. A buffer too small for the
// next pending event fails with InvalidArgument.
//
// Events already buffered for Next are returned first, without a read, so
// that mixing Read and Next never reorders events.
func (w *WatchSet) Read(bufferSize int) ([]Event, error) {
	const op = "inotify.read"
	fd, err := w.h.Get(op)
	if err != nil {
		return nil, err
	}
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < unix.SizeofInotifyEvent {
		return nil, control.ObserveError(api.TypeInotify, "read",
			api.InvalidArgument(op, "buffer size %d below one event header", bufferSize))
	}
	if n := w.pending.Length(); n > 0 {
		out := make([]Event, 0, n)
		for w.pending.Length() > 0 {
			out = append(out, w.pending.Remove().(Event))
		}
		return out, nil
	}

	buf := make([]byte, bufferSize)
	n, err := fdio.Read(fd, buf)
	if err != nil {
		return nil, control.ObserveError(api.TypeInotify, "read", api.FromErrno(op, err))
	}
	events, err := w.decode(buf[:n])
	if err != nil {
		return nil, control.ObserveError(api.TypeInotify, "read", api.FromErrno(op, err))
	}
	control.ObserveRead(api.TypeInotify)
	control.ObserveEvents(len(events))
	return events, nil
}

// Next returns one event, reading from the kernel with the configured
// buffer size whenever nothing is buffered.
func (w *WatchSet) Next() (Event, error) {
	if w.pending.Length() == 0 {
		events, err := w.Read(w.bufSize)
		if err != nil {
			return Event{}, err
		}
		for _, ev := range events {
			w.pending.Add(ev)
		}
		if w.pending.Length() == 0 {
			return Event{}, api.FromErrno("inotify.next", unix.EIO)
		}
	}
	return w.pending.Remove().(Event), nil
}

// Pending returns the number of events buffered for Next.
func (w *WatchSet) Pending() int {
	return w.pending.Length()
}

func (w *WatchSet) decode(b []byte) ([]Event, error) {
	ne := binary.NativeEndian
	var events []Event
	for off := 0; off < len(b); {
		if len(b)-off < unix.SizeofInotifyEvent {
			return events, unix.EIO
		}
		wd := int(int32(ne.Uint32(b[off:])))
		mask := Mask(ne.Uint32(b[off+4:]))
		cookie := ne.Uint32(b[off+8:])
		nameLen := int(ne.Uint32(b[off+12:]))
		start := off + unix.SizeofInotifyEvent
		end := start + nameLen
		if end > len(b) {
			return events, unix.EIO
		}
		name := b[start:end]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		off = end

		path, known := w.idx.path(wd)
		events = append(events, Event{
			Path:    path,
			Name:    string(name),
			Mask:    mask,
			Cookie:  cookie,
			WatchID: wd,
		})
		// The kernel dropped this watch (Unwatch, OneShot, deletion or unmount).
		if known && mask&Ignored != 0 && w.idx.dropWd(wd) {
			control.ObserveWatches(-1)
			control.ObservePurge()
			w.log.WithFields(logrus.Fields{"wd": wd, "path": path}).Debug("watch invalidated by kernel")
		}
	}
	return events, nil
}

// WatchedPaths returns the watched paths in lexical order.
func (w *WatchSet) WatchedPaths() []string {
	return w.idx.paths()
}

// Lookup returns the watch id registered for path.
func (w *WatchSet) Lookup(path string) (int, bool) {
	return w.idx.wd(path)
}

// Fd returns the underlying descriptor for use with poll/epoll/select.
func (w *WatchSet) Fd() int { return w.h.Fd() }

// Type returns api.TypeInotify.
func (w *WatchSet) Type() api.Type { return api.TypeInotify }

// NonBlocking reports whether reads fail with WouldBlock instead of blocking.
func (w *WatchSet) NonBlocking() bool { return w.nonBlocking }

// CloseOnExec reports whether FD_CLOEXEC was requested.
func (w *WatchSet) CloseOnExec() bool { return w.closeOnExec }

// Close releases the descriptor; the kernel drops every watch with it.
// Repeated calls return nil.
func (w *WatchSet) Close() error {
	if w.h.Fd() >= 0 {
		control.ObserveWatches(-w.idx.reset())
	}
	for w.pending.Length() > 0 {
		w.pending.Remove()
	}
	return w.h.Close()
}

func withPath(err error, path string) error {
	var e *api.Error
	if errors.As(err, &e) {
		return e.WithContext("path", path)
	}
	return err
}
