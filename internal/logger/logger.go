// Package logger constructs the process-wide logrus logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger at the given level. JSON output is meant for when the
// TUI's stderr is redirected to a file and scraped; the text formatter is for
// humans tailing it directly.
func New(level string, jsonFormat bool) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if jsonFormat {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			PadLevelText:  true,
		})
	}

	return log
}

// Discard returns a logger that drops everything. Used by tests and as a
// fallback when callers pass nil.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(nullWriter{})
	return log
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
