// Package api
// Author: momentics
//
// Runtime introspection contract.

package api

// Debug exposes live introspection of open descriptors and kernel limits.
type Debug interface {
	// DumpState evaluates every probe and returns the results by name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a named probe.
	RegisterProbe(name string, fn func() any)
}
