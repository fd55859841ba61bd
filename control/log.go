// control/log.go
// Author: momentics <momentics@gmail.com>
//
// Package logger shared by all descriptor wrappers.

package control

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/momentics/linuxfd/api"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Logger returns the module logger.
func Logger() *logrus.Logger {
	return logger
}

// LoggerFor returns the logger a wrapper of type t should use. A non-nil
// override wins, so callers can route a single descriptor elsewhere.
func LoggerFor(t api.Type, override logrus.FieldLogger) logrus.FieldLogger {
	if override != nil {
		return override
	}
	return logger.WithField("type", t.String())
}
