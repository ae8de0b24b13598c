// Package logging configures the shared structured logger.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logger at the given level name. Unknown names fall back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// ForComponent returns an entry tagged with the component name.
func ForComponent(logger *logrus.Logger, component string) *logrus.Entry {
	if logger == nil {
		logger = New("info")
	}
	return logger.WithField("component", component)
}
