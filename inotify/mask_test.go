//go:build linux

package inotify_test

import (
	"errors"
	"testing"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/inotify"
)

func TestMaskString(t *testing.T) {
	tests := []struct {
		m    inotify.Mask
		want string
	}{
		{0, "0"},
		{inotify.Modify, "IN_MODIFY"},
		{inotify.Modify | inotify.CloseWrite, "IN_MODIFY|IN_CLOSE_WRITE"},
		{inotify.Close, "IN_CLOSE_WRITE|IN_CLOSE_NOWRITE"},
		{inotify.Create | inotify.IsDir, "IN_CREATE|IN_ISDIR"},
		{inotify.Ignored, "IN_IGNORED"},
		{inotify.Mask(0x00100000), "0x100000"},
	}
	for _, tc := range tests {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("Mask(%#x).String() = %q, want %q", uint32(tc.m), got, tc.want)
		}
	}
}

func TestParseMask(t *testing.T) {
	m, err := inotify.ParseMask([]string{"IN_MODIFY", "close_write", " create ", "move"})
	if err != nil {
		t.Fatalf("ParseMask: %v", err)
	}
	want := inotify.Modify | inotify.CloseWrite | inotify.Create | inotify.MovedFrom | inotify.MovedTo
	if m != want {
		t.Fatalf("ParseMask = %v, want %v", m, want)
	}
	if all, _ := inotify.ParseMask([]string{"all_events"}); all != inotify.AllEvents {
		t.Fatalf("all_events = %v", all)
	}
	if _, err := inotify.ParseMask([]string{"IN_BOGUS"}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("ParseMask unknown: %v, want InvalidArgument", err)
	}
	if _, err := inotify.ParseMask([]string{"mask_add"}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("IN_MASK_ADD must stay internal: %v", err)
	}
}

func TestMaskHas(t *testing.T) {
	m := inotify.Create | inotify.IsDir
	if !m.Has(inotify.Create) || !m.Has(inotify.Create|inotify.IsDir) {
		t.Fatal("Has misses set bits")
	}
	if m.Has(inotify.Delete) || m.Has(inotify.Create|inotify.Delete) || m.Has(0) {
		t.Fatal("Has reports unset bits")
	}
}
