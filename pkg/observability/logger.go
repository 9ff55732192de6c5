package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/platinummonkey/backer/pkg/contextkeys"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levels = [...]struct {
	name string
	slog slog.Level
}{
	DebugLevel: {"DEBUG", slog.LevelDebug},
	InfoLevel:  {"INFO", slog.LevelInfo},
	WarnLevel:  {"WARN", slog.LevelWarn},
	ErrorLevel: {"ERROR", slog.LevelError},
}

func (l LogLevel) valid() bool { return l >= DebugLevel && l <= ErrorLevel }

func (l LogLevel) String() string {
	if !l.valid() {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levels[l].name
}

// ParseLogLevel parses debug, info, warn or error. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes JSON lines through slog. Derived loggers share the handler.
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

var defaultLogger = NewLogger(InfoLevel, os.Stdout)

// NewLogger creates a JSON logger writing to output, or stdout when nil
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	if !level.valid() {
		level = InfoLevel
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: levels[level].slog})
	return &Logger{logger: slog.New(handler), level: level}
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// WithField returns a logger that adds key to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields returns a logger that adds every field to every entry
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.with(args...)
}

// WithError adds err under "error". A nil err returns the receiver.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) Debug(message string) { l.logger.Debug(message) }
func (l *Logger) Info(message string)  { l.logger.Info(message) }
func (l *Logger) Warn(message string)  { l.logger.Warn(message) }
func (l *Logger) Error(message string) { l.logger.Error(message) }

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// WithRequestID stores the request id for FromContext
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contextkeys.WithRequestID(ctx, requestID)
}

// GetRequestID returns the request id stored by WithRequestID
func GetRequestID(ctx context.Context) string {
	return contextkeys.GetRequestID(ctx)
}

// WithLogger stores logger for GetLogger and FromContext
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return contextkeys.WithLogger(ctx, logger)
}

// GetLogger returns the context logger, or the process default
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextkeys.LoggerKey).(*Logger); ok {
		return logger
	}
	return defaultLogger
}

// FromContext returns the context logger with request, user and trace ids attached
func FromContext(ctx context.Context) *Logger {
	logger := GetLogger(ctx)

	var args []interface{}
	if requestID := GetRequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if userID := contextkeys.GetUserID(ctx); userID != "" {
		args = append(args, "user_id", userID)
	}
	if len(args) > 0 {
		logger = logger.with(args...)
	}

	return UpdateLoggerWithTraceContext(ctx, logger)
}
