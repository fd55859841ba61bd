//go:build linux

// File: internal/fdtest/fdtest.go
// Author: momentics <momentics@gmail.com>
//
// Test helpers for descriptor leak probing.

package fdtest

import (
	"os"
	"testing"
)

// OpenCount returns the number of descriptors currently open in the process.
func OpenCount(tb testing.TB) int {
	tb.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		tb.Fatalf("read /proc/self/fd: %v", err)
	}
	// ReadDir holds one descriptor of its own while listing; it is closed by
	// the time we return, so do not count it.
	return len(entries) - 1
}

// NoLeak records the current descriptor count and returns a check to defer.
func NoLeak(tb testing.TB) func() {
	tb.Helper()
	before := OpenCount(tb)
	return func() {
		tb.Helper()
		if after := OpenCount(tb); after != before {
			tb.Errorf("descriptor leak: %d open before, %d after", before, after)
		}
	}
}
