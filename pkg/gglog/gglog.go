// Package gglog configures the process-wide structured logger.
package gglog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger writing to stderr with the given level name
// ("debug", "info", "warn", "error"). An unrecognised level falls back to
// info rather than erroring, since logging misconfiguration should never
// be the reason a run aborts.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	return logger
}
