//go:build linux

// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Declarative YAML configuration of a descriptor group.

package facade

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/linuxfd/api"
	"github.com/momentics/linuxfd/control"
)

// Config declares the logger settings and the named descriptors of a Group.
// Names are unique across all four kinds.
type Config struct {
	Log      control.Settings        `yaml:"log"`
	Counters map[string]CounterSpec  `yaml:"counters"`
	Signals  map[string]SignalSpec   `yaml:"signals"`
	Timers   map[string]TimerSpec    `yaml:"timers"`
	Watches  map[string]WatchSetSpec `yaml:"watches"`
}

// CounterSpec declares an eventfd counter.
type CounterSpec struct {
	Initial     uint64 `yaml:"initial"`
	Semaphore   bool   `yaml:"semaphore"`
	NonBlocking bool   `yaml:"nonblocking"`
	CloseOnExec bool   `yaml:"cloexec"`
	Strict      bool   `yaml:"strict"`
}

// SignalSpec declares a signal channel. Signals are names ("SIGTERM",
// "usr1") or numbers.
type SignalSpec struct {
	Signals     []string `yaml:"signals"`
	NonBlocking bool     `yaml:"nonblocking"`
	CloseOnExec bool     `yaml:"cloexec"`
}

// TimerSpec declares a timer. A non-zero Initial arms it on Open.
type TimerSpec struct {
	Clock       string        `yaml:"clock"` // "monotonic" (default) or "realtime"
	Initial     time.Duration `yaml:"initial"`
	Interval    time.Duration `yaml:"interval"`
	NonBlocking bool          `yaml:"nonblocking"`
	CloseOnExec bool          `yaml:"cloexec"`
}

// WatchSetSpec declares an inotify instance and its initial watches.
type WatchSetSpec struct {
	BufferSize  int         `yaml:"buffer_size"`
	NonBlocking bool        `yaml:"nonblocking"`
	CloseOnExec bool        `yaml:"cloexec"`
	Paths       []WatchSpec `yaml:"paths"`
}

// WatchSpec declares one watch. Events are mask names ("modify",
// "IN_CLOSE_WRITE", "all_events").
type WatchSpec struct {
	Path    string   `yaml:"path"`
	Events  []string `yaml:"events"`
	Replace bool     `yaml:"replace"`
}

// DefaultConfig returns an empty group with default log settings.
func DefaultConfig() *Config {
	return &Config{Log: control.DefaultSettings()}
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, api.InvalidArgument("facade.config", "decode: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, api.FromErrno("facade.config", err)
	}
	return ParseConfig(data)
}

// Validate checks names and value ranges that can be checked without
// touching the kernel.
func (c *Config) Validate() error {
	const op = "facade.config"
	seen := make(map[string]string)
	claim := func(kind, name string) error {
		if name == "" {
			return api.InvalidArgument(op, "empty %s name", kind)
		}
		if prev, dup := seen[name]; dup {
			return api.InvalidArgument(op, "name %q used by %s and %s", name, prev, kind)
		}
		seen[name] = kind
		return nil
	}
	for name := range c.Counters {
		if err := claim("counter", name); err != nil {
			return err
		}
	}
	for name, s := range c.Signals {
		if err := claim("signal", name); err != nil {
			return err
		}
		if len(s.Signals) == 0 {
			return api.InvalidArgument(op, "signal %q declares no signals", name)
		}
	}
	for name, s := range c.Timers {
		if err := claim("timer", name); err != nil {
			return err
		}
		if s.Initial < 0 || s.Interval < 0 {
			return api.InvalidArgument(op, "timer %q has a negative duration", name)
		}
		if s.Initial == 0 && s.Interval > 0 {
			return api.InvalidArgument(op, "timer %q has an interval but no initial expiry", name)
		}
	}
	for name, s := range c.Watches {
		if err := claim("watch set", name); err != nil {
			return err
		}
		for _, p := range s.Paths {
			if p.Path == "" || len(p.Events) == 0 {
				return api.InvalidArgument(op, "watch set %q needs a path and events per entry", name)
			}
		}
	}
	return nil
}
