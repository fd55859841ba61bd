//go:build linux

package api_test

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
)

func TestFromErrnoCodes(t *testing.T) {
	cases := []struct {
		errno unix.Errno
		want  api.ErrorCode
	}{
		{unix.EAGAIN, api.ErrCodeWouldBlock},
		{unix.EINVAL, api.ErrCodeInvalidArgument},
		{unix.ENOENT, api.ErrCodeNotFound},
		{unix.EMFILE, api.ErrCodeResourceExhausted},
		{unix.ENFILE, api.ErrCodeResourceExhausted},
		{unix.ENOSPC, api.ErrCodeResourceExhausted},
		{unix.ENOMEM, api.ErrCodeResourceExhausted},
		{unix.EACCES, api.ErrCodePermissionDenied},
		{unix.EPERM, api.ErrCodePermissionDenied},
		{unix.ENODEV, api.ErrCodeDeviceError},
		{unix.ENAMETOOLONG, api.ErrCodeNameTooLong},
		{unix.EBADF, api.ErrCodeClosed},
		{unix.EIO, api.ErrCodeSystemFailure},
	}
	for _, tc := range cases {
		err := api.FromErrno("test.op", tc.errno)
		if got := api.CodeOf(err); got != tc.want {
			t.Errorf("FromErrno(%v): code %v, want %v", tc.errno, got, tc.want)
		}
		if !errors.Is(err, tc.errno) {
			t.Errorf("FromErrno(%v): errno not reachable through errors.Is", tc.errno)
		}
	}
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", api.FromErrno("eventfd.read", unix.EAGAIN))
	if !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock match, got %v", err)
	}
	if errors.Is(err, api.ErrNotFound) {
		t.Fatal("WouldBlock must not match ErrNotFound")
	}
}

func TestFromErrnoPassThrough(t *testing.T) {
	if api.FromErrno("x", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
	orig := api.InvalidArgument("x", "bad value %d", 3)
	if got := api.FromErrno("y", orig); got != error(orig) {
		t.Fatalf("*Error must pass through, got %v", got)
	}
	foreign := errors.New("boom")
	if api.CodeOf(api.FromErrno("z", foreign)) != api.ErrCodeSystemFailure {
		t.Fatal("foreign errors must map to SystemFailure")
	}
}

func TestErrorString(t *testing.T) {
	err := api.FromErrno("inotify.watch", unix.ENOENT).(*api.Error)
	err.WithContext("path", "/nope")
	want := "inotify.watch: not found: no such file or directory (context: map[path:/nope])"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got := api.Closed("timerfd.read").Error(); got != "timerfd.read: descriptor closed" {
		t.Fatalf("Closed().Error() = %q", got)
	}
}

func TestTypeString(t *testing.T) {
	for typ, want := range map[api.Type]string{
		api.TypeEventFD:  "eventfd",
		api.TypeSignalFD: "signalfd",
		api.TypeTimerFD:  "timerfd",
		api.TypeInotify:  "inotify",
		api.TypeUnknown:  "unknown",
	} {
		if typ.String() != want {
			t.Errorf("%d.String() = %q, want %q", typ, typ.String(), want)
		}
	}
}
