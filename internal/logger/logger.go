// Package logger holds the shared logrus instance for the extraction
// service. Every stage logs through it with structured fields: request
// intake tags entries with the request id, the upstream client with
// endpoint and attempt counters, the normalizer with the recovery steps
// it applied, and the registry with the endpoint it mutated.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)

	// LOG_LEVEL=debug surfaces per-request normalization traces,
	// which are too chatty for the default.
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		Logger.SetLevel(level)
	} else {
		Logger.SetLevel(logrus.InfoLevel)
	}

	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
}

// WithFields starts an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField starts an entry carrying a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError starts an entry carrying an error field.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

func Info(msg string) {
	Logger.Info(msg)
}

func Error(msg string) {
	Logger.Error(msg)
}

func Warn(msg string) {
	Logger.Warn(msg)
}
