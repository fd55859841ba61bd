//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux limits that bound how many descriptors and watches can be created.

package control

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	inotifyMaxWatchesPath   = "/proc/sys/fs/inotify/max_user_watches"
	inotifyMaxInstancesPath = "/proc/sys/fs/inotify/max_user_instances"
	inotifyMaxQueuedPath    = "/proc/sys/fs/inotify/max_queued_events"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.nofile", func() any {
		var rl unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
			return err.Error()
		}
		return rl.Cur
	})
	dp.RegisterProbe("platform.inotify.max_user_watches", func() any {
		return readProcInt(inotifyMaxWatchesPath)
	})
	dp.RegisterProbe("platform.inotify.max_user_instances", func() any {
		return readProcInt(inotifyMaxInstancesPath)
	})
	dp.RegisterProbe("platform.inotify.max_queued_events", func() any {
		return readProcInt(inotifyMaxQueuedPath)
	})
}

// readProcInt returns -1 when the file is missing or malformed.
func readProcInt(path string) int64 {
	b, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return -1
	}
	return v
}
