//go:build linux

// File: signalfd/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Decoding of struct signalfd_siginfo (see signalfd(2)).

package signalfd

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// SizeofSiginfo is the fixed size of struct signalfd_siginfo.
const SizeofSiginfo = 128

// Record is one dequeued signal. Fields that do not apply to the signal are
// zero.
type Record struct {
	Signo    unix.Signal // signal number
	Errno    int32       // error number (unused)
	Code     int32       // signal code
	Pid      uint32      // PID of sender
	Uid      uint32      // real UID of sender
	Fd       int32       // file descriptor (SIGIO)
	Tid      uint32      // kernel timer ID (POSIX timers)
	Band     uint32      // band event (SIGIO)
	Overrun  uint32      // POSIX timer overrun count
	Trapno   uint32      // trap number that caused the signal
	Status   int32       // exit status or signal (SIGCHLD)
	Int      int32       // integer sent by sigqueue(3)
	Ptr      uint64      // pointer sent by sigqueue(3)
	Utime    uint64      // user CPU time consumed (SIGCHLD)
	Stime    uint64      // system CPU time consumed (SIGCHLD)
	Addr     uint64      // address that generated the signal
	AddrLSB  uint16      // least significant bit of address (SIGBUS)
	Syscall  int32       // system call number (SIGSYS)
	CallAddr uint64      // address of system call instruction (SIGSYS)
	Arch     uint32      // AUDIT_ARCH_* of the system call (SIGSYS)
}

func decodeRecord(b []byte) Record {
	ne := binary.NativeEndian
	return Record{
		Signo:    unix.Signal(ne.Uint32(b[0:])),
		Errno:    int32(ne.Uint32(b[4:])),
		Code:     int32(ne.Uint32(b[8:])),
		Pid:      ne.Uint32(b[12:]),
		Uid:      ne.Uint32(b[16:]),
		Fd:       int32(ne.Uint32(b[20:])),
		Tid:      ne.Uint32(b[24:]),
		Band:     ne.Uint32(b[28:]),
		Overrun:  ne.Uint32(b[32:]),
		Trapno:   ne.Uint32(b[36:]),
		Status:   int32(ne.Uint32(b[40:])),
		Int:      int32(ne.Uint32(b[44:])),
		Ptr:      ne.Uint64(b[48:]),
		Utime:    ne.Uint64(b[56:]),
		Stime:    ne.Uint64(b[64:]),
		Addr:     ne.Uint64(b[72:]),
		AddrLSB:  ne.Uint16(b[80:]),
		Syscall:  int32(ne.Uint32(b[84:])),
		CallAddr: ne.Uint64(b[88:]),
		Arch:     ne.Uint32(b[96:]),
	}
}
