// Package logger provides context-aware structured logging on top of logrus.
// Components log through the entry carried in the context so callers can
// attach their own fields or swap the sink entirely.
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

var (
	// G is a convenience alias for GetLogger.
	G = GetLogger
	// L is the global fallback entry used when no logger is in the context.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger attaches a logger entry to the context, retrievable via GetLogger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger.WithContext(ctx))
}

// GetLogger retrieves the logger entry from the context, falling back to the
// global entry L.
func GetLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return logger
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the level of the global fallback logger.
func SetLevel(level logrus.Level) {
	L.Logger.SetLevel(level)
}
