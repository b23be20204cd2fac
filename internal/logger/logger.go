// Package logger wraps a process-wide zerolog logger. Debug through warn go
// to stdout, error and above to stderr.
package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// current is swapped whole by SetOutput and SetLevel so they are safe to
// call while other goroutines log.
var current atomic.Pointer[zerolog.Logger]

func get() *zerolog.Logger { return current.Load() }

func set(l zerolog.Logger) { current.Store(&l) }

func init() {
	writer := zerolog.MultiLevelWriter(
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel},
		},
		SpecificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		},
	)
	set(zerolog.New(writer).With().Timestamp().Logger().Level(levelFromEnv()))
}

func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetOutput sends all levels to w, as JSON lines unless w is a
// zerolog.ConsoleWriter. The current level is kept.
func SetOutput(w io.Writer) {
	set(zerolog.New(w).With().Timestamp().Logger().Level(get().GetLevel()))
}

// SetLevel changes the minimum level.
func SetLevel(l zerolog.Level) { set(get().Level(l)) }

// L returns the current logger for structured fields.
func L() *zerolog.Logger { return get() }

func Info(msg string) { get().Info().Msg(msg) }

func Infof(format string, args ...interface{}) { get().Info().Msgf(format, args...) }

func Warn(msg string) { get().Warn().Msg(msg) }

func Warnf(format string, args ...interface{}) { get().Warn().Msgf(format, args...) }

func Error(msg string) { get().Error().Msg(msg) }

func Errorf(format string, args ...interface{}) { get().Error().Msgf(format, args...) }

func Debugf(format string, args ...interface{}) { get().Debug().Msgf(format, args...) }

func Fatalf(format string, args ...interface{}) { get().Fatal().Msgf(format, args...) }

// SpecificLevelWriter forwards only the listed levels to Writer.
type SpecificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w SpecificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
