// logger.go - Levelled structured logging for the gallery backend.
//
// Wraps log/slog with the field-map call style used across the server
// packages. JSON output is used in production, text everywhere else.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Level represents the severity of a log entry
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger writes structured entries through a slog handler.
type Logger struct {
	sl *slog.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

func init() {
	defaultLogger = New(os.Stdout, LevelFromEnv(), JSONFromEnv())
}

// JSONFromEnv reports whether JSON output was requested, either directly or
// by running in production.
func JSONFromEnv() bool {
	return os.Getenv("GALLERY_LOG_FORMAT") == "json" || os.Getenv("GALLERY_ENV") == "production"
}

// LevelFromEnv returns the configured log level, defaulting to info.
func LevelFromEnv() Level {
	return ParseLevel(os.Getenv("GALLERY_LOG_LEVEL"))
}

// ParseLevel maps a level name to a Level. Unknown names map to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a Logger writing to w at the given minimum level.
func New(w io.Writer, min Level, json bool) *Logger {
	opts := &slog.HandlerOptions{Level: min.slogLevel()}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{sl: slog.New(h)}
}

// Default returns the process-wide logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger and returns the previous one.
func SetDefault(l *Logger) *Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := defaultLogger
	defaultLogger = l
	return prev
}

// getCaller returns the file and line number of the caller
func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (l *Logger) log(level Level, msg string, fields map[string]any, err error) {
	ctx := context.Background()
	sl := level.slogLevel()
	if !l.sl.Enabled(ctx, sl) {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+2)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if c := getCaller(3); c != "" {
		attrs = append(attrs, slog.String("caller", c))
	}

	l.sl.LogAttrs(ctx, sl, msg, attrs...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, msg, fields, nil)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, msg, fields, nil)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(LevelWarn, msg, fields, nil)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.log(LevelError, msg, fields, err)
}

// Package-level helpers write through Default().

func Debug(msg string, fields map[string]any) {
	Default().log(LevelDebug, msg, fields, nil)
}

func Info(msg string, fields map[string]any) {
	Default().log(LevelInfo, msg, fields, nil)
}

func Warn(msg string, fields map[string]any) {
	Default().log(LevelWarn, msg, fields, nil)
}

func Error(msg string, fields map[string]any, err error) {
	Default().log(LevelError, msg, fields, err)
}
