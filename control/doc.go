// Package control
// Author: momentics <momentics@gmail.com>
//
// Ambient runtime layer shared by the descriptor wrappers.
//
// Provides:
//   - the logrus logger every wrapper derives its field logger from
//   - prometheus collectors for descriptor lifecycle, reads and errors
//   - a live-descriptor inventory and debug probes for state dumps
//   - Settings, the process-level logging configuration
//
// Wrappers report into this package; it never calls back into them.
package control
