//go:build linux

// File: signalfd/set.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Signal sets and their kernel sigset_t encoding.

package signalfd

import (
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/linuxfd/api"
)

// MaxSignal is the highest signal number a Linux sigset_t can hold.
const MaxSignal = 64

// sigset_t is an array of machine words; 64-bit words on 64-bit platforms.
const sigsetWordBits = 8 * unsafe.Sizeof(unix.Sigset_t{}.Val[0])

// Set is a sorted, duplicate-free list of signal numbers.
type Set []unix.Signal

// NewSet validates and normalizes sigs. An empty set, or a number outside
// [1, MaxSignal], fails with InvalidArgument.
func NewSet(sigs ...unix.Signal) (Set, error) {
	const op = "signalfd.set"
	if len(sigs) == 0 {
		return nil, api.InvalidArgument(op, "empty signal set")
	}
	seen := make(map[unix.Signal]struct{}, len(sigs))
	out := make(Set, 0, len(sigs))
	for _, sig := range sigs {
		if sig < 1 || sig > MaxSignal {
			return nil, api.InvalidArgument(op, "signal %d out of range [1, %d]", int(sig), MaxSignal)
		}
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ParseSet builds a Set from names such as "SIGUSR1", "usr1" or "10".
func ParseSet(names []string) (Set, error) {
	sigs := make([]unix.Signal, 0, len(names))
	for _, name := range names {
		sig, err := ParseSignal(name)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return NewSet(sigs...)
}

// ParseSignal resolves a single signal name or number.
func ParseSignal(name string) (unix.Signal, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > MaxSignal {
			return 0, api.InvalidArgument("signalfd.set", "signal %d out of range [1, %d]", n, MaxSignal)
		}
		return unix.Signal(n), nil
	}
	if !strings.HasPrefix(s, "SIG") {
		s = "SIG" + s
	}
	sig := unix.SignalNum(s)
	if sig == 0 {
		return 0, api.InvalidArgument("signalfd.set", "unknown signal %q", name)
	}
	return sig, nil
}

// Contains reports whether sig is in the set.
func (s Set) Contains(sig unix.Signal) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= sig })
	return i < len(s) && s[i] == sig
}

// Names returns the signal names, e.g. "SIGUSR1".
func (s Set) Names() []string {
	out := make([]string, len(s))
	for i, sig := range s {
		if name := unix.SignalName(sig); name != "" {
			out[i] = name
		} else {
			out[i] = strconv.Itoa(int(sig))
		}
	}
	return out
}

// Sigset encodes the set as a kernel sigset_t.
func (s Set) Sigset() *unix.Sigset_t {
	var ss unix.Sigset_t
	for _, sig := range s {
		n := uintptr(sig) - 1
		ss.Val[n/sigsetWordBits] |= 1 << (n % sigsetWordBits)
	}
	return &ss
}

// BlockSignals blocks the set on the calling OS thread and returns a
// function restoring the previous mask. The caller must hold the thread with
// runtime.LockOSThread for the mask to mean anything. This is a convenience
// for the precondition of Channel: the channel itself never touches masks.
func BlockSignals(s Set) (restore func() error, err error) {
	var old unix.Sigset_t
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, s.Sigset(), &old); err != nil {
		return nil, api.FromErrno("signalfd.block", err)
	}
	return func() error {
		return api.FromErrno("signalfd.restore", unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil))
	}, nil
}
