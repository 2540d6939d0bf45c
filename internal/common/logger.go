package common

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Logger wraps slog.Logger with the context helpers used by the runner.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

func handlerOptions(level LogLevel) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:     level.ToSlogLevel(),
		AddSource: true,
	}
}

// NewLogger creates a text logger writing to stdout.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a text logger writing to w.
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, handlerOptions(level))),
		level:  level,
		masker: GetGlobalMasker(),
	}
}

// NewJSONLogger creates a structured logger with JSON output on stdout.
func NewJSONLogger(level LogLevel) *Logger {
	return NewJSONLoggerTo(os.Stdout, level)
}

// NewJSONLoggerTo creates a JSON logger writing to w.
func NewJSONLoggerTo(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, handlerOptions(level))),
		level:  level,
		masker: GetGlobalMasker(),
	}
}

// NewColorLogger creates a logger backed by ColorHandler on stdout.
// Colors are only emitted when stdout is a terminal.
func NewColorLogger(level LogLevel) *Logger {
	return NewColorLoggerTo(os.Stdout, level)
}

// NewColorLoggerTo creates a ColorHandler logger writing to w.
func NewColorLoggerTo(w io.Writer, level LogLevel) *Logger {
	h := NewColorHandler(w, handlerOptions(level))
	return &Logger{
		Logger: slog.New(h),
		level:  level,
		masker: h.masker,
	}
}

// NewLoggerWithHandler wraps an arbitrary slog handler.
func NewLoggerWithHandler(h slog.Handler, level LogLevel) *Logger {
	return &Logger{
		Logger: slog.New(h),
		level:  level,
		masker: GetGlobalMasker(),
	}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// Masker returns the masker used for this logger's sensitive output.
func (l *Logger) Masker() *Masker {
	if l.masker == nil {
		return GetGlobalMasker()
	}
	return l.masker
}

// EnableMasking toggles masking for this logger.
func (l *Logger) EnableMasking(enabled bool) {
	l.Masker().SetEnabled(enabled)
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
		masker: l.masker,
	}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithIssue returns a logger carrying the issue key an operation targets.
func (l *Logger) WithIssue(issueKey string) *Logger {
	return l.with("issue", issueKey)
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return l.with("method", method, "url", url)
}

// Global default logger instance
var defaultLogger = NewColorLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		return
	}
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}

// LogError logs an error with context
func LogError(msg string, err error, attrs ...any) {
	args := append([]any{"error", err}, attrs...)
	defaultLogger.Error(msg, args...)
}

// LogInfo logs informational message
func LogInfo(msg string, attrs ...any) {
	defaultLogger.Info(msg, attrs...)
}

// LogDebug logs debug message
func LogDebug(msg string, attrs ...any) {
	defaultLogger.Debug(msg, attrs...)
}

// LogWarn logs warning message
func LogWarn(msg string, attrs ...any) {
	defaultLogger.Warn(msg, attrs...)
}
