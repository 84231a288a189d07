// Package log provides the logging surface used across graphflow. The
// default backend is kataras/golog; components accept the Logger interface
// so callers can plug in their own.
package log

import (
	"github.com/kataras/golog"
)

// Logger is the printf-style logging interface graphflow components use.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// GologLogger implements Logger on top of a golog.Logger.
type GologLogger struct {
	logger *golog.Logger
}

var _ Logger = (*GologLogger)(nil)

// New creates a golog-backed logger at the given level. Accepted levels are
// golog's: "debug", "info", "warn", "error", "fatal", "disable".
func New(level string) *GologLogger {
	l := golog.New()
	l.SetLevel(level)
	return &GologLogger{logger: l}
}

// Wrap adapts an existing golog.Logger.
func Wrap(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger}
}

// Debug logs at debug level.
func (l *GologLogger) Debug(format string, v ...any) { l.logger.Debugf(format, v...) }

// Info logs at info level.
func (l *GologLogger) Info(format string, v ...any) { l.logger.Infof(format, v...) }

// Warn logs at warn level.
func (l *GologLogger) Warn(format string, v ...any) { l.logger.Warnf(format, v...) }

// Error logs at error level.
func (l *GologLogger) Error(format string, v ...any) { l.logger.Errorf(format, v...) }

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

var defaultLogger Logger = New("info")

// Default returns the package-level logger.
func Default() Logger { return defaultLogger }

// SetDefault replaces the package-level logger, so logging can be
// configured globally without passing logger objects around.
func SetDefault(logger Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}
