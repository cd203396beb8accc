// Package logrus adapts a logrus logger to core.Logger.
package logrus

import (
	"github.com/Swind/go-fiber-runner/core"
	lr "github.com/sirupsen/logrus"
)

// Logger forwards core.Logger calls to a logrus entry. Fields become logrus
// fields; a later field with the same key wins.
type Logger struct {
	entry *lr.Entry
}

var _ core.Logger = (*Logger)(nil)

// New wraps l. A nil l uses logrus.StandardLogger().
func New(l *lr.Logger) *Logger {
	if l == nil {
		l = lr.StandardLogger()
	}
	return &Logger{entry: lr.NewEntry(l)}
}

// With returns a Logger that adds fields to every message.
func (l *Logger) With(fields ...core.Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(fields))}
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

func toFields(fields []core.Field) lr.Fields {
	out := make(lr.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
