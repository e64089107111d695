// Package logger wraps zerolog with the service's output and rotation setup.
package logger

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Logger.
type Options struct {
	Level  string
	Format string // json or console
	Output string // stdout, stderr or a file path

	// Rotation settings, used only for file outputs. Zero values take the
	// lumberjack defaults (100 MB, keep everything).
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger wraps zerolog logger
type Logger struct {
	logger zerolog.Logger
	closer io.Closer
}

// New creates a new logger instance
func New(opts Options) (*Logger, error) {
	zerolog.SetGlobalLevel(parseLevel(opts.Level))

	writer, closer, err := openOutput(opts)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", "json":
	case "console":
		writer = zerolog.ConsoleWriter{Out: writer}
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, errors.New("unknown log format " + opts.Format)
	}

	logger := zerolog.New(writer).With().Timestamp().Caller().Str("service", "reward-economy").Logger()

	return &Logger{logger: logger, closer: closer}, nil
}

func openOutput(opts Options) (io.Writer, io.Closer, error) {
	switch opts.Output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	// Fail early on an unwritable path; lumberjack would only report it on
	// the first write.
	file, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, err
	}
	_ = file.Close()

	rotated := &lumberjack.Logger{
		Filename:   opts.Output,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return rotated, rotated, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info logs an info message
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn logs a warning message
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error logs an error message
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Component returns a child logger tagged with the component name. It
// shares the parent's output; only the parent should be closed.
func (l *Logger) Component(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", name).Logger()}
}

// IsDebug reports whether debug events are emitted.
func (l *Logger) IsDebug() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Global logger instance
var global *Logger

// Init initializes the global logger
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	global = l
	return nil
}

// Get returns the global logger instance
func Get() *Logger {
	if global == nil {
		global, _ = New(Options{Level: "info", Format: "json", Output: "stdout"})
	}
	return global
}
