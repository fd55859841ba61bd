// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Live descriptor inventory and debug probe registry for state dumps.

package control

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/linuxfd/api"
)

// DescriptorInfo describes one descriptor held by a wrapper.
type DescriptorInfo struct {
	Fd     int
	Type   api.Type
	Opened time.Time
}

// Inventory tracks descriptors created and not yet released by this module.
// Wrappers are single-owner, but several wrappers may live on different
// goroutines, so the inventory itself is synchronized.
type Inventory struct {
	mu   sync.RWMutex
	live map[int]DescriptorInfo
}

var inventory = &Inventory{live: make(map[int]DescriptorInfo)}

// Descriptors returns the process-wide inventory.
func Descriptors() *Inventory {
	return inventory
}

func (in *Inventory) add(t api.Type, fd int) {
	in.mu.Lock()
	in.live[fd] = DescriptorInfo{Fd: fd, Type: t, Opened: time.Now()}
	in.mu.Unlock()
}

func (in *Inventory) remove(fd int) {
	in.mu.Lock()
	delete(in.live, fd)
	in.mu.Unlock()
}

// Snapshot returns live descriptors ordered by fd.
func (in *Inventory) Snapshot() []DescriptorInfo {
	in.mu.RLock()
	out := make([]DescriptorInfo, 0, len(in.live))
	for _, info := range in.live {
		out = append(out, info)
	}
	in.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Fd < out[j].Fd })
	return out
}

// Count returns the number of live descriptors of type t, or of all types
// when t is api.TypeUnknown.
func (in *Inventory) Count(t api.Type) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if t == api.TypeUnknown {
		return len(in.live)
	}
	n := 0
	for _, info := range in.live {
		if info.Type == t {
			n++
		}
	}
	return n
}

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

var _ api.Debug = (*DebugProbes)(nil)

// NewDebugProbes creates a probe registry preloaded with the inventory
// and platform probes.
func NewDebugProbes() *DebugProbes {
	dp := &DebugProbes{
		probes: make(map[string]func() any),
	}
	dp.RegisterProbe("descriptors.open", func() any {
		return inventory.Count(api.TypeUnknown)
	})
	for _, t := range []api.Type{api.TypeEventFD, api.TypeSignalFD, api.TypeTimerFD, api.TypeInotify} {
		t := t
		dp.RegisterProbe("descriptors."+t.String(), func() any {
			return inventory.Count(t)
		})
	}
	RegisterPlatformProbes(dp)
	return dp
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
