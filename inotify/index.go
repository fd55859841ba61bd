//go:build linux

// File: inotify/index.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package inotify

import (
	"sort"
	"sync"
)

// index keeps the path <-> watch id mapping. Both directions always agree:
// every path maps to exactly one id and every id to exactly one path.
type index struct {
	mu     sync.RWMutex
	byPath map[string]int
	byWd   map[int]string
}

func newIndex() *index {
	return &index{
		byPath: make(map[string]int),
		byWd:   make(map[int]string),
	}
}

func (ix *index) wd(path string) (int, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	wd, ok := ix.byPath[path]
	return wd, ok
}

func (ix *index) path(wd int) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.byWd[wd]
	return p, ok
}

// bind maps path to wd. An older path holding wd, or an older wd held by
// path, is unlinked first; the displaced path is returned.
func (ix *index) bind(path string, wd int) (displaced string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old, ok := ix.byPath[path]; ok && old != wd {
		delete(ix.byWd, old)
	}
	if prev, ok := ix.byWd[wd]; ok && prev != path {
		delete(ix.byPath, prev)
		displaced = prev
	}
	ix.byPath[path] = wd
	ix.byWd[wd] = path
	return displaced
}

func (ix *index) dropPath(path string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	wd, ok := ix.byPath[path]
	if !ok {
		return false
	}
	delete(ix.byPath, path)
	delete(ix.byWd, wd)
	return true
}

func (ix *index) dropWd(wd int) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	p, ok := ix.byWd[wd]
	if !ok {
		return false
	}
	delete(ix.byWd, wd)
	delete(ix.byPath, p)
	return true
}

func (ix *index) len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPath)
}

func (ix *index) paths() []string {
	ix.mu.RLock()
	out := make([]string, 0, len(ix.byPath))
	for p := range ix.byPath {
		out = append(out, p)
	}
	ix.mu.RUnlock()
	sort.Strings(out)
	return out
}

// reset forgets every entry and returns how many there were.
func (ix *index) reset() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n := len(ix.byPath)
	ix.byPath = make(map[string]int)
	ix.byWd = make(map[int]string)
	return n
}
