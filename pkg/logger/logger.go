package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ContextKey keys the values the handler lifts onto records.
type ContextKey string

const (
	// RequestIDKey carries the HTTP request ID
	RequestIDKey ContextKey = "request_id"
	// UsernameKey carries the signed-in username
	UsernameKey ContextKey = "username"
	// BatchIDKey carries the upload batch being processed
	BatchIDKey ContextKey = "batch_id"
)

var contextKeys = []ContextKey{RequestIDKey, UsernameKey, BatchIDKey}

// Config selects the handler and minimum level.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w.
func New(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs a stderr logger as the slog default. Stdout is left to CLI output.
func Init(cfg *Config) {
	slog.SetDefault(New(os.Stderr, cfg))
}

// WithContext returns the default logger annotated with any known context values
func WithContext(ctx context.Context) *slog.Logger {
	return From(ctx, slog.Default())
}

// From annotates base with the context values set on ctx.
func From(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := base
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			l = l.With(string(key), v)
		}
	}
	return l
}

// Info, Debug, Warn and Error log through WithContext(ctx).
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
