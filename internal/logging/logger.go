// Package logging wraps zerolog with subsystem- and request-scoped child
// loggers so every line carries where it came from and which request it
// belongs to.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var levels = map[string]zerolog.Level{
	"trace":  zerolog.TraceLevel,
	"debug":  zerolog.DebugLevel,
	"info":   zerolog.InfoLevel,
	"warn":   zerolog.WarnLevel,
	"error":  zerolog.ErrorLevel,
	"fatal":  zerolog.FatalLevel,
	"silent": zerolog.Disabled,
}

// Logger wraps zerolog. Child loggers are derived with Sub and WithRequest.
type Logger struct {
	zl zerolog.Logger
}

// New creates a root logger writing to w at the given level. A nil writer
// selects pretty console output on stderr. Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	lvl, ok := levels[level]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger().Level(lvl)}
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

// WithRequest returns a child logger tagged with a request ID so every log
// line for one request's attempt/relay sequence can be correlated.
func (l *Logger) WithRequest(id string) *Logger {
	return &Logger{zl: l.zl.With().Str("requestId", id).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog exposes the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }
