//go:build linux

// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for linuxfd components.

package benchmarks

import (
	"os"
	"testing"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/eventfd"
	"github.com/momentics/linuxfd/inotify"
	"github.com/momentics/linuxfd/reactor"
	"github.com/momentics/linuxfd/timerfd"
)

// BenchmarkEventfdWriteRead measures one notify/consume round trip.
func BenchmarkEventfdWriteRead(b *testing.B) {
	c, err := eventfd.New(eventfd.Config{NonBlocking: true})
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Write(1); err != nil {
			b.Fatal(err)
		}
		if _, err := c.Read(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTimerArmQuery measures rearming plus a state query.
func BenchmarkTimerArmQuery(b *testing.B) {
	t, err := timerfd.New(timerfd.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	defer t.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := t.Arm(1<<40, 0, false); err != nil {
			b.Fatal(err)
		}
		if _, err := t.Query(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReactorDispatch measures readiness dispatch through epoll.
func BenchmarkReactorDispatch(b *testing.B) {
	r, err := reactor.New(reactor.Config{})
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()
	c, err := eventfd.New(eventfd.Config{NonBlocking: true})
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	if err := r.Register(c, reactor.Readable, func(api.Descriptor, reactor.EventType) {
		_, _ = c.Read()
	}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Notify()
		if n, err := r.Poll(-1); err != nil || n != 1 {
			b.Fatalf("Poll = %d, %v", n, err)
		}
	}
}

// BenchmarkInotifyDecode measures event decoding and path resolution.
func BenchmarkInotifyDecode(b *testing.B) {
	w, err := inotify.New(inotify.Config{NonBlocking: true})
	if err != nil {
		b.Fatal(err)
	}
	defer w.Close()
	dir := b.TempDir()
	if _, err := w.Watch(dir, inotify.Attrib, false); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mode := os.FileMode(0o700)
		if i%2 == 1 {
			mode = 0o755
		}
		if err := os.Chmod(dir, mode); err != nil {
			b.Fatal(err)
		}
		if _, err := w.Read(0); err != nil {
			b.Fatal(err)
		}
	}
}
