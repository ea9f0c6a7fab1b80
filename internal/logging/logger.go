// Package logging builds the process logger and carries a request-scoped
// entry through context.Context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New returns a logger writing JSON in production and text elsewhere.
// An unknown level falls back to info.
func New(level, env string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, env)
}

func NewWithOutput(w io.Writer, level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	if strings.EqualFold(env, "production") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// WithEntry stores e in ctx.
func WithEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the request-scoped entry, or the standard logger when
// the context carries none.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Logger provides operation-tagged logging for services
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger with request context
func NewLogger(ctx context.Context) *Logger {
	return &Logger{entry: FromContext(ctx)}
}

func (l *Logger) op(operation string) *logrus.Entry {
	return l.entry.WithField("operation", operation)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	l.op(operation).WithError(err).Error("operation failed")
}

func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.op(operation).Errorf(format, args...)
}

func (l *Logger) LogInfo(operation string, message string) {
	l.op(operation).Info(message)
}

func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.op(operation).Infof(format, args...)
}

func (l *Logger) LogWarn(operation string, message string) {
	l.op(operation).Warn(message)
}

func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.op(operation).Warnf(format, args...)
}
