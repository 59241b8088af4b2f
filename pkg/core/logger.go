package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger provides structured logging capabilities
// This abstraction allows swapping logging implementations
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warn logs a warning message
	Warn(args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})

	// WithFields returns a logger that attaches fields to every entry
	WithFields(fields map[string]interface{}) Logger

	// WithContext returns a logger carrying the request ID found in ctx, if any
	WithContext(ctx context.Context) Logger
}

// LoggerConfig configures the default logger
type LoggerConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string

	// Format is one of text, json, logfmt (default: text)
	Format string

	// Output defaults to os.Stderr
	Output io.Writer

	// Prefix is printed before every message
	Prefix string
}

type charmLogger struct {
	l *log.Logger
}

// NewLogger creates a leveled structured logger backed by charmbracelet/log
func NewLogger(cfg LoggerConfig) (Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var formatter log.Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	l := log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          cfg.Prefix,
	})
	return &charmLogger{l: l}, nil
}

// NewDefaultLogger creates a text logger at info level writing to stderr
func NewDefaultLogger() Logger {
	return &charmLogger{l: log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
	})}
}

// NewNopLogger discards everything
func NewNopLogger() Logger {
	return &charmLogger{l: log.New(io.Discard)}
}

func (c *charmLogger) Error(args ...interface{}) { c.l.Error(fmt.Sprint(args...)) }

func (c *charmLogger) Errorf(format string, args ...interface{}) { c.l.Errorf(format, args...) }

func (c *charmLogger) Warn(args ...interface{}) { c.l.Warn(fmt.Sprint(args...)) }

func (c *charmLogger) Warnf(format string, args ...interface{}) { c.l.Warnf(format, args...) }

func (c *charmLogger) Info(args ...interface{}) { c.l.Info(fmt.Sprint(args...)) }

func (c *charmLogger) Infof(format string, args ...interface{}) { c.l.Infof(format, args...) }

func (c *charmLogger) Debug(args ...interface{}) { c.l.Debug(fmt.Sprint(args...)) }

func (c *charmLogger) Debugf(format string, args ...interface{}) { c.l.Debugf(format, args...) }

// WithFields attaches fields in key order so output is stable
func (c *charmLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return c
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyvals := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		keyvals = append(keyvals, k, fields[k])
	}
	return &charmLogger{l: c.l.With(keyvals...)}
}

func (c *charmLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return c
	}
	if id := GetRequestID(ctx); id != "" {
		return &charmLogger{l: c.l.With("request_id", id)}
	}
	return c
}
