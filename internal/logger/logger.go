// Package logger provides leveled, structured logging for the trading loop.
// Each record is a JSON line carrying level, message, logger name, timestamp and
// a free-form map of extra fields. Records go to a size-rotated file and to stderr.
//
// There is no package-level logger: callers construct one handle at startup and pass
// it down, closing it when the loop stops.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Name is the logger name stamped on every record.
const Name = "botia5m"

// Fields is the free-form extra-fields map attached to a record.
type Fields map[string]any

// Options controls where and how records are written.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // json or text (text only affects stderr)
	Path       string // rotating log file; empty disables the file sink
	MaxSizeMB  int
	MaxBackups int
	Stderr     io.Writer // defaults to os.Stderr
}

// Logger wraps a zerolog.Logger and the file sink it owns.
type Logger struct {
	zl   zerolog.Logger
	file *lumberjack.Logger
}

// ParseLevel maps a config level to zerolog, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if strings.ToLower(opts.Format) == "text" {
		stderr = zerolog.ConsoleWriter{Out: stderr, TimeFormat: "2006-01-02 15:04:05.000"}
	}

	writers := []io.Writer{stderr}
	var file *lumberjack.Logger
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, err
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 1
		}
		file = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, file)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("logger", Name).
		Logger()

	return &Logger{zl: zl, file: file}, nil
}

// NewWriter builds a JSON Logger over w with no file sink. Used by tests and tools.
func NewWriter(w io.Writer, level string) *Logger {
	zl := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Str("logger", Name).Logger()
	return &Logger{zl: zl}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Debug logs a message at debug level
func (l *Logger) Debug(msg string, fields Fields) {
	l.zl.Debug().Fields(map[string]any(fields)).Msg(msg)
}

// Info logs a message at info level
func (l *Logger) Info(msg string, fields Fields) {
	l.zl.Info().Fields(map[string]any(fields)).Msg(msg)
}

// Warn logs a message at warn level
func (l *Logger) Warn(msg string, fields Fields) {
	l.zl.Warn().Fields(map[string]any(fields)).Msg(msg)
}

// Error logs a message at error level with the error attached
func (l *Logger) Error(msg string, err error, fields Fields) {
	l.zl.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
