//go:build linux

package signalfd_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/internal/fdio"
	"github.com/momentics/linuxfd/internal/fdtest"
	"github.com/momentics/linuxfd/signalfd"
)

// lockAndBlock pins the test goroutine to its OS thread and blocks sigs
// there. Signals sent with tgkill to that thread then stay pending for the
// signalfd instead of reaching the Go runtime's handlers.
func lockAndBlock(t *testing.T, sigs ...unix.Signal) (tid int) {
	t.Helper()
	runtime.LockOSThread()
	set, err := signalfd.NewSet(sigs...)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	restore, err := signalfd.BlockSignals(set)
	if err != nil {
		runtime.UnlockOSThread()
		t.Fatalf("BlockSignals: %v", err)
	}
	t.Cleanup(func() {
		if err := restore(); err != nil {
			t.Errorf("restore mask: %v", err)
		}
		runtime.UnlockOSThread()
	})
	return unix.Gettid()
}

// siTkill is the si_code of signals sent with tkill/tgkill.
const siTkill = -6

func TestNewSet(t *testing.T) {
	set, err := signalfd.NewSet(unix.SIGUSR2, unix.SIGUSR1, unix.SIGUSR2)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if diff := cmp.Diff(signalfd.Set{unix.SIGUSR1, unix.SIGUSR2}, set); diff != "" {
		t.Fatalf("NewSet mismatch (-want +got):\n%s", diff)
	}
	if !set.Contains(unix.SIGUSR1) || set.Contains(unix.SIGTERM) {
		t.Fatal("Contains reports wrong membership")
	}

	for _, bad := range [][]unix.Signal{nil, {0}, {-1}, {signalfd.MaxSignal + 1}} {
		if _, err := signalfd.NewSet(bad...); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("NewSet(%v): %v, want InvalidArgument", bad, err)
		}
	}
}

func TestParseSet(t *testing.T) {
	set, err := signalfd.ParseSet([]string{"SIGTERM", "usr1", " hup ", "10"})
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	want := signalfd.Set{unix.SIGHUP, unix.SIGUSR1, unix.SIGTERM}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Fatalf("ParseSet mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"SIGHUP", "SIGUSR1", "SIGTERM"}, set.Names()); diff != "" {
		t.Fatalf("Names mismatch (-want +got):\n%s", diff)
	}
	if _, err := signalfd.ParseSet([]string{"SIGNOPE"}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("ParseSet unknown: %v, want InvalidArgument", err)
	}
}

func TestSigsetEncoding(t *testing.T) {
	set, _ := signalfd.NewSet(unix.SIGHUP, unix.SIGUSR1, 64)
	ss := set.Sigset()
	var want unix.Sigset_t
	// Mirror the kernel layout: bit (sig-1) in an array of native words.
	bits := uint(64)
	if len(want.Val) == 32 {
		bits = 32
	}
	for _, sig := range []uint{1, 10, 64} {
		want.Val[(sig-1)/bits] |= 1 << ((sig - 1) % bits)
	}
	if *ss != want {
		t.Fatalf("Sigset = %v, want %v", ss.Val, want.Val)
	}
}

func TestCreateCloseNoLeak(t *testing.T) {
	defer fdtest.NoLeak(t)()

	for _, cfg := range []signalfd.Config{
		{Signals: []unix.Signal{unix.SIGUSR1}},
		{Signals: []unix.Signal{unix.SIGUSR1, unix.SIGUSR2}, NonBlocking: true},
		{Signals: []unix.Signal{unix.SIGALRM}, NonBlocking: true, CloseOnExec: true},
	} {
		c, err := signalfd.New(cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", cfg, err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
	}
}

func TestNewRejectsEmptySet(t *testing.T) {
	defer fdtest.NoLeak(t)()
	if _, err := signalfd.New(signalfd.Config{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("New without signals: %v, want InvalidArgument", err)
	}
}

func TestReadPendingSignal(t *testing.T) {
	tid := lockAndBlock(t, unix.SIGUSR2)

	c, err := signalfd.New(signalfd.Config{Signals: []unix.Signal{unix.SIGUSR2}, NonBlocking: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Read(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Read with nothing pending: %v, want WouldBlock", err)
	}
	if err := unix.Tgkill(unix.Getpid(), tid, unix.SIGUSR2); err != nil {
		t.Fatalf("tgkill: %v", err)
	}
	rec, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Signo != unix.SIGUSR2 {
		t.Fatalf("Signo = %v, want SIGUSR2", rec.Signo)
	}
	if int(rec.Pid) != unix.Getpid() || int(rec.Uid) != unix.Getuid() {
		t.Fatalf("sender = pid %d uid %d, want pid %d uid %d", rec.Pid, rec.Uid, unix.Getpid(), unix.Getuid())
	}
	if rec.Code != siTkill {
		t.Fatalf("Code = %d, want SI_TKILL", rec.Code)
	}
	if _, err := c.Read(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Read after consuming: %v, want WouldBlock", err)
	}
}

func TestBlockingReadAlarm(t *testing.T) {
	tid := lockAndBlock(t, unix.SIGALRM)

	c, err := signalfd.New(signalfd.Config{Signals: []unix.Signal{unix.SIGALRM}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	pid := unix.Getpid()
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = unix.Tgkill(pid, tid, unix.SIGALRM)
	}()

	start := time.Now()
	rec, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Signo != unix.SIGALRM {
		t.Fatalf("Signo = %v, want SIGALRM", rec.Signo)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Read took %v", elapsed)
	}
}

func TestOneRecordPerRead(t *testing.T) {
	tid := lockAndBlock(t, unix.SIGUSR1, unix.SIGUSR2)

	c, err := signalfd.New(signalfd.Config{Signals: []unix.Signal{unix.SIGUSR1, unix.SIGUSR2}, NonBlocking: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	pid := unix.Getpid()
	for _, sig := range []unix.Signal{unix.SIGUSR1, unix.SIGUSR2} {
		if err := unix.Tgkill(pid, tid, sig); err != nil {
			t.Fatalf("tgkill(%v): %v", sig, err)
		}
	}
	got := map[unix.Signal]bool{}
	for i := 0; i < 2; i++ {
		rec, err := c.Read()
		if err != nil {
			t.Fatalf("Read #%d: %v", i+1, err)
		}
		got[rec.Signo] = true
	}
	if !got[unix.SIGUSR1] || !got[unix.SIGUSR2] {
		t.Fatalf("records = %v, want SIGUSR1 and SIGUSR2", got)
	}
	if _, err := c.Read(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("third Read: %v, want WouldBlock", err)
	}
}

func TestReconfigureKeepsDescriptor(t *testing.T) {
	tid := lockAndBlock(t, unix.SIGUSR1, unix.SIGUSR2)

	c, err := signalfd.New(signalfd.Config{Signals: []unix.Signal{unix.SIGUSR1}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	fd := c.Fd()

	err = c.Reconfigure(signalfd.Config{
		Signals:     []unix.Signal{unix.SIGUSR2, unix.SIGUSR2},
		NonBlocking: true,
		CloseOnExec: true,
	})
	if err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if c.Fd() != fd {
		t.Fatalf("Fd changed from %d to %d", fd, c.Fd())
	}
	if diff := cmp.Diff(signalfd.Set{unix.SIGUSR2}, c.Signals()); diff != "" {
		t.Fatalf("Signals mismatch (-want +got):\n%s", diff)
	}
	nb, cloexec, err := fdio.Flags(fd)
	if err != nil {
		t.Fatalf("Flags: %v", err)
	}
	if !nb || !cloexec || !c.NonBlocking() || !c.CloseOnExec() {
		t.Fatalf("flags after Reconfigure: kernel (%v, %v), accessors (%v, %v)",
			nb, cloexec, c.NonBlocking(), c.CloseOnExec())
	}

	// Only SIGUSR2 is watched now.
	if err := unix.Tgkill(unix.Getpid(), tid, unix.SIGUSR2); err != nil {
		t.Fatalf("tgkill: %v", err)
	}
	rec, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Signo != unix.SIGUSR2 {
		t.Fatalf("Signo = %v, want SIGUSR2", rec.Signo)
	}

	if err := c.ReconfigureSignals(unix.SIGUSR1); err != nil {
		t.Fatalf("ReconfigureSignals: %v", err)
	}
	if !c.NonBlocking() {
		t.Fatal("ReconfigureSignals must keep flags")
	}
	if err := c.Reconfigure(signalfd.Config{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Reconfigure with empty set: %v, want InvalidArgument", err)
	}
	if diff := cmp.Diff(signalfd.Set{unix.SIGUSR1}, c.Signals()); diff != "" {
		t.Fatalf("failed Reconfigure changed the set (-want +got):\n%s", diff)
	}
}

func TestUseAfterClose(t *testing.T) {
	c, err := signalfd.New(signalfd.Config{Signals: []unix.Signal{unix.SIGUSR1}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = c.Close()
	if _, err := c.Read(); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("Read after Close: %v, want Closed", err)
	}
	if err := c.ReconfigureSignals(unix.SIGUSR2); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("Reconfigure after Close: %v, want Closed", err)
	}
}
