// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness types shared by the epoll implementation.

package reactor

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/momentics/linuxfd/api"
)

// EventType is a readiness bitmask.
type EventType uint32

const (
	// Readable means a read will not block.
	Readable EventType = 1 << iota
	// Writable means a write will not block.
	Writable
	// Error reports a hang-up or error condition. It is always delivered,
	// whether requested or not.
	Error
)

func (e EventType) String() string {
	var parts []string
	if e&Readable != 0 {
		parts = append(parts, "readable")
	}
	if e&Writable != 0 {
		parts = append(parts, "writable")
	}
	if e&Error != 0 {
		parts = append(parts, "error")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Callback handles readiness of a registered descriptor. It runs on the
// goroutine calling Poll and must consume the readiness (read the counter,
// the timer, the signal) or it is reported again on the next Poll.
type Callback func(d api.Descriptor, ev EventType)

// Config holds reactor parameters.
type Config struct {
	MaxEvents int // events fetched per Poll; zero means 128

	Logger logrus.FieldLogger
}

const defaultMaxEvents = 128
