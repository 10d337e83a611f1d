package engine

import (
	"github.com/sirupsen/logrus"
)

var (
	// package logger instance
	log = logrus.New()
)

// SetLogLevel changes global module log level.
func SetLogLevel(level string) error {
	ll, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	log.Level = ll
	return nil // OK
}

// GetLogLevel gets global module log level.
func GetLogLevel() logrus.Level {
	return log.Level
}

// package initialization
func init() {
	// be silent by default
	log.Level = logrus.WarnLevel
}
