// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor multiplexes readiness of linuxfd descriptors over a single
// level-triggered epoll instance and dispatches callbacks on the polling
// goroutine.
package reactor
