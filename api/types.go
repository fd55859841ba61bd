// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and the descriptor contract.

package api

// Type enumerates the kernel notification objects wrapped by this module.
type Type int

const (
	TypeUnknown Type = iota
	TypeEventFD
	TypeSignalFD
	TypeTimerFD
	TypeInotify
)

func (t Type) String() string {
	switch t {
	case TypeEventFD:
		return "eventfd"
	case TypeSignalFD:
		return "signalfd"
	case TypeTimerFD:
		return "timerfd"
	case TypeInotify:
		return "inotify"
	default:
		return "unknown"
	}
}

// Descriptor is the lifecycle shape shared by every wrapper: one owned
// kernel descriptor that can be handed to poll/epoll/select and released
// exactly once.
type Descriptor interface {
	// Fd returns the kernel descriptor, or -1 after Close.
	Fd() int

	// Type identifies the kernel object behind Fd.
	Type() Type

	// Close releases the descriptor. Repeated calls return nil.
	Close() error
}
