//go:build linux

// File: inotify/mask.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event masks and their textual form.

package inotify

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
)

// Mask is an inotify event mask.
type Mask uint32

// Event kinds. These may be requested in Watch and appear in events.
const (
	Access       Mask = unix.IN_ACCESS
	Attrib       Mask = unix.IN_ATTRIB
	CloseWrite   Mask = unix.IN_CLOSE_WRITE
	CloseNoWrite Mask = unix.IN_CLOSE_NOWRITE
	Create       Mask = unix.IN_CREATE
	Delete       Mask = unix.IN_DELETE
	DeleteSelf   Mask = unix.IN_DELETE_SELF
	Modify       Mask = unix.IN_MODIFY
	MoveSelf     Mask = unix.IN_MOVE_SELF
	MovedFrom    Mask = unix.IN_MOVED_FROM
	MovedTo      Mask = unix.IN_MOVED_TO
	Open         Mask = unix.IN_OPEN

	Close     Mask = unix.IN_CLOSE
	Move      Mask = unix.IN_MOVE
	AllEvents Mask = unix.IN_ALL_EVENTS
)

// Watch flags. They change how a watch is installed and never appear in events.
const (
	DontFollow Mask = unix.IN_DONT_FOLLOW
	ExclUnlink Mask = unix.IN_EXCL_UNLINK
	OneShot    Mask = unix.IN_ONESHOT
	OnlyDir    Mask = unix.IN_ONLYDIR

	maskAdd Mask = unix.IN_MASK_ADD
)

// Bits set only by the kernel in delivered events.
const (
	Unmount   Mask = unix.IN_UNMOUNT
	QOverflow Mask = unix.IN_Q_OVERFLOW
	Ignored   Mask = unix.IN_IGNORED
	IsDir     Mask = unix.IN_ISDIR
)

// maskNames lists single bits in the order String prints them.
var maskNames = []struct {
	bit  Mask
	name string
}{
	{Access, "IN_ACCESS"},
	{Modify, "IN_MODIFY"},
	{Attrib, "IN_ATTRIB"},
	{CloseWrite, "IN_CLOSE_WRITE"},
	{CloseNoWrite, "IN_CLOSE_NOWRITE"},
	{Open, "IN_OPEN"},
	{MovedFrom, "IN_MOVED_FROM"},
	{MovedTo, "IN_MOVED_TO"},
	{Create, "IN_CREATE"},
	{Delete, "IN_DELETE"},
	{DeleteSelf, "IN_DELETE_SELF"},
	{MoveSelf, "IN_MOVE_SELF"},
	{Unmount, "IN_UNMOUNT"},
	{QOverflow, "IN_Q_OVERFLOW"},
	{Ignored, "IN_IGNORED"},
	{OnlyDir, "IN_ONLYDIR"},
	{DontFollow, "IN_DONT_FOLLOW"},
	{ExclUnlink, "IN_EXCL_UNLINK"},
	{maskAdd, "IN_MASK_ADD"},
	{IsDir, "IN_ISDIR"},
	{OneShot, "IN_ONESHOT"},
}

// parseNames also accepts the combined masks.
var parseNames = func() map[string]Mask {
	m := map[string]Mask{
		"IN_CLOSE":      Close,
		"IN_MOVE":       Move,
		"IN_ALL_EVENTS": AllEvents,
	}
	for _, n := range maskNames {
		if n.bit == maskAdd {
			continue
		}
		m[n.name] = n.bit
	}
	return m
}()

// Has reports whether every bit of o is set in m.
func (m Mask) Has(o Mask) bool {
	return o != 0 && m&o == o
}

// eventKinds reports whether m requests at least one event kind.
func (m Mask) eventKinds() bool {
	return m&AllEvents != 0
}

// String renders the set bits as "IN_MODIFY|IN_CLOSE_WRITE". Unknown bits
// are appended in hex.
func (m Mask) String() string {
	if m == 0 {
		return "0"
	}
	var parts []string
	rest := m
	for _, n := range maskNames {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseMask ORs together names such as "IN_MODIFY", "modify" or
// "close_write". Combined names ("close", "move", "all_events") are accepted.
func ParseMask(names []string) (Mask, error) {
	var m Mask
	for _, name := range names {
		s := strings.ToUpper(strings.TrimSpace(name))
		if !strings.HasPrefix(s, "IN_") {
			s = "IN_" + s
		}
		bit, ok := parseNames[s]
		if !ok {
			return 0, api.InvalidArgument("inotify.mask", "unknown event %q", name)
		}
		m |= bit
	}
	return m, nil
}
