package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dex-datafeed/src/models"

	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	out    io.Writer
	level  zerolog.Level
	logger zerolog.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing JSON lines to stdout.
// A nil config logs at INFO.
func NewLogger(config *models.MConfig, name string) *Logger {
	return NewLoggerWithWriter(config, name, os.Stdout)
}

// -----------------------------------------------------------------------------

// NewLoggerWithWriter is NewLogger with an explicit sink.
func NewLoggerWithWriter(config *models.MConfig, name string, w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if config != nil {
		level = ParseLevel(config.LogLevel)
	}

	return newLogger(w, level, name)
}

func newLogger(w io.Writer, level zerolog.Level, name string) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", name).
		Logger()

	return &Logger{name: name, out: w, level: level, logger: zl}
}

// -----------------------------------------------------------------------------

// ParseLevel maps config log levels (DEBUG, INFO, WARNING, ERROR) to zerolog levels.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Named returns a logger for a sub-component sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return newLogger(l.out, l.level, name)
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}
