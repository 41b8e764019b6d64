package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)

	// With returns a child logger which always carries the key-value pair.
	With(key string, value any) Logger
}

type defaultLogger struct {
	inner zerolog.Logger
}

func NewLogger(level int) *defaultLogger {
	return NewLoggerWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

func NewLoggerWithWriter(w io.Writer, level int) *defaultLogger {
	inner := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &defaultLogger{inner: inner}
}

// ParseLevel converts a configured level name into one of the level constants.
// Unknown names fall back to INFO.
func ParseLevel(s string) int {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "silence", "silent", "off":
		return SILENCE
	default:
		return INFO
	}
}

func (l *defaultLogger) Debugf(msg string, a ...any) {
	l.inner.Debug().Msg(fmt.Sprintf(msg, a...))
}

func (l *defaultLogger) Infof(msg string, a ...any) {
	l.inner.Info().Msg(fmt.Sprintf(msg, a...))
}

func (l *defaultLogger) Warnf(msg string, a ...any) {
	l.inner.Warn().Msg(fmt.Sprintf(msg, a...))
}

func (l *defaultLogger) Errorf(msg string, a ...any) {
	l.inner.Error().Msg(fmt.Sprintf(msg, a...))
}

func (l *defaultLogger) With(key string, value any) Logger {
	return &defaultLogger{inner: l.inner.With().Interface(key, value).Logger()}
}

func toZerologLevel(level int) zerolog.Level {
	switch level {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}
