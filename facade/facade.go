//go:build linux

// File: facade/facade.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Group opens every descriptor declared in a Config and releases them
// together. It is the single entry point for applications that describe
// their counters, signals, timers and watches in YAML.

package facade

import (
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
	"github.com/momentics/linuxfd/eventfd"
	"github.com/momentics/linuxfd/inotify"
	"github.com/momentics/linuxfd/reactor"
	"github.com/momentics/linuxfd/signalfd"
	"github.com/momentics/linuxfd/timerfd"
)

// Group owns a set of named descriptors.
type Group struct {
	mu       sync.Mutex
	closed   bool
	order    []string
	all      map[string]api.Descriptor
	counters map[string]*eventfd.Counter
	channels map[string]*signalfd.Channel
	timers   map[string]*timerfd.Timer
	watches  map[string]*inotify.WatchSet
	attached *reactor.Reactor
	log      logrus.FieldLogger
}

// Open applies cfg.Log and creates every declared descriptor. On the first
// failure everything already opened is closed and the error is returned.
func Open(cfg *Config) (*Group, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Log.Apply(); err != nil {
		return nil, api.InvalidArgument("facade.open", "%v", err)
	}
	g := &Group{
		all:      make(map[string]api.Descriptor),
		counters: make(map[string]*eventfd.Counter),
		channels: make(map[string]*signalfd.Channel),
		timers:   make(map[string]*timerfd.Timer),
		watches:  make(map[string]*inotify.WatchSet),
		log:      control.Logger().WithField("component", "facade"),
	}
	if err := g.open(cfg); err != nil {
		if cerr := g.Close(); cerr != nil {
			g.log.WithError(cerr).Warn("cleanup after failed open")
		}
		return nil, err
	}
	g.log.WithField("descriptors", len(g.order)).Info("descriptor group opened")
	return g, nil
}

func (g *Group) add(name string, d api.Descriptor) {
	g.order = append(g.order, name)
	g.all[name] = d
}

func (g *Group) open(cfg *Config) error {
	for _, name := range sortedKeys(cfg.Counters) {
		s := cfg.Counters[name]
		c, err := eventfd.New(eventfd.Config{
			Initial:     s.Initial,
			Semaphore:   s.Semaphore,
			NonBlocking: s.NonBlocking,
			CloseOnExec: s.CloseOnExec,
			Strict:      s.Strict,
			Logger:      g.log.WithField("name", name),
		})
		if err != nil {
			return named(err, name)
		}
		g.counters[name] = c
		g.add(name, c)
	}

	for _, name := range sortedKeys(cfg.Signals) {
		s := cfg.Signals[name]
		set, err := signalfd.ParseSet(s.Signals)
		if err != nil {
			return named(err, name)
		}
		ch, err := signalfd.New(signalfd.Config{
			Signals:     set,
			NonBlocking: s.NonBlocking,
			CloseOnExec: s.CloseOnExec,
			Logger:      g.log.WithField("name", name),
		})
		if err != nil {
			return named(err, name)
		}
		g.channels[name] = ch
		g.add(name, ch)
	}

	for _, name := range sortedKeys(cfg.Timers) {
		s := cfg.Timers[name]
		clock, err := timerfd.ParseClock(s.Clock)
		if err != nil {
			return named(err, name)
		}
		t, err := timerfd.New(timerfd.Config{
			Clock:       clock,
			NonBlocking: s.NonBlocking,
			CloseOnExec: s.CloseOnExec,
			Logger:      g.log.WithField("name", name),
		})
		if err != nil {
			return named(err, name)
		}
		g.timers[name] = t
		g.add(name, t)
		if s.Initial > 0 {
			if _, err := t.Arm(s.Initial, s.Interval, false); err != nil {
				return named(err, name)
			}
		}
	}

	for _, name := range sortedKeys(cfg.Watches) {
		s := cfg.Watches[name]
		w, err := inotify.New(inotify.Config{
			NonBlocking: s.NonBlocking,
			CloseOnExec: s.CloseOnExec,
			BufferSize:  s.BufferSize,
			Logger:      g.log.WithField("name", name),
		})
		if err != nil {
			return named(err, name)
		}
		g.watches[name] = w
		g.add(name, w)
		for _, p := range s.Paths {
			mask, err := inotify.ParseMask(p.Events)
			if err != nil {
				return named(err, name)
			}
			if _, err := w.Watch(p.Path, mask, p.Replace); err != nil {
				return named(err, name)
			}
		}
	}
	return nil
}

// Counter returns the named eventfd counter.
func (g *Group) Counter(name string) (*eventfd.Counter, bool) {
	c, ok := g.counters[name]
	return c, ok
}

// Channel returns the named signal channel.
func (g *Group) Channel(name string) (*signalfd.Channel, bool) {
	c, ok := g.channels[name]
	return c, ok
}

// Timer returns the named timer.
func (g *Group) Timer(name string) (*timerfd.Timer, bool) {
	t, ok := g.timers[name]
	return t, ok
}

// WatchSet returns the named inotify instance.
func (g *Group) WatchSet(name string) (*inotify.WatchSet, bool) {
	w, ok := g.watches[name]
	return w, ok
}

// Descriptors returns every descriptor by name.
func (g *Group) Descriptors() map[string]api.Descriptor {
	out := make(map[string]api.Descriptor, len(g.all))
	for k, v := range g.all {
		out[k] = v
	}
	return out
}

// Attach registers every descriptor for readability with r. Either all are
// registered or none. A group can be attached to one reactor; Close detaches.
func (g *Group) Attach(r *reactor.Reactor, cb reactor.Callback) error {
	const op = "facade.attach"
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return api.Closed(op)
	}
	if g.attached != nil {
		return api.InvalidArgument(op, "group already attached")
	}
	for i, name := range g.order {
		if err := r.Register(g.all[name], reactor.Readable, cb); err != nil {
			for _, done := range g.order[:i] {
				_ = r.Unregister(g.all[done])
			}
			return named(err, name)
		}
	}
	g.attached = r
	return nil
}

// Close detaches from the reactor and closes every descriptor in reverse
// order of creation, joining their errors. Repeated calls return nil.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for i := len(g.order) - 1; i >= 0; i-- {
		name := g.order[i]
		d := g.all[name]
		if g.attached != nil {
			if err := g.attached.Unregister(d); err != nil && !errors.Is(err, api.ErrClosed) {
				errs = append(errs, named(err, name))
			}
		}
		if err := d.Close(); err != nil {
			errs = append(errs, named(err, name))
		}
	}
	g.attached = nil
	return errors.Join(errs...)
}

func named(err error, name string) error {
	var e *api.Error
	if errors.As(err, &e) {
		return e.WithContext("name", name)
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
