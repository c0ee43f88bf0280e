// Package logging provides third-party backends for the core.Logger
// contract.
package logging

import (
	"github.com/rs/zerolog"

	"github.com/taskgroup/go-task-group/core"
)

// ZerologLogger adapts a zerolog.Logger to core.Logger. Fields become
// structured keys on the emitted event.
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ core.Logger = (*ZerologLogger)(nil)

// NewZerologLogger wraps the given zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(msg string, fields ...core.Field) {
	l.emit(l.logger.Debug(), msg, fields)
}

// Info logs an info message.
func (l *ZerologLogger) Info(msg string, fields ...core.Field) {
	l.emit(l.logger.Info(), msg, fields)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(msg string, fields ...core.Field) {
	l.emit(l.logger.Warn(), msg, fields)
}

// Error logs an error message.
func (l *ZerologLogger) Error(msg string, fields ...core.Field) {
	l.emit(l.logger.Error(), msg, fields)
}

func (l *ZerologLogger) emit(event *zerolog.Event, msg string, fields []core.Field) {
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}
