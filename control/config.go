// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Process-level logging settings.

package control

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Settings configures the module logger.
type Settings struct {
	LogLevel  string `yaml:"log_level"`  // logrus level name: debug, info, warn, ...
	LogFormat string `yaml:"log_format"` // "text" or "json"
}

// DefaultSettings mirrors the logger state at package init.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Apply reconfigures the module logger. Empty fields keep the current value.
func (s Settings) Apply() error {
	if s.LogLevel != "" {
		lvl, err := logrus.ParseLevel(s.LogLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		logger.SetLevel(lvl)
	}
	switch s.LogFormat {
	case "":
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format: unknown format %q", s.LogFormat)
	}
	return nil
}
