// Package logging configures structured logging for mclogin.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Init builds a logger writing to w, installs it as the slog default and returns it.
// level is one of debug, info, warn, error (default: warn).
// format is text or json (default: text).
func Init(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string log level to slog.Level.
// The CLI writes its own output to the terminal, so the default is warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Subsystem returns a child logger tagged with the given subsystem.
func Subsystem(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("subsystem", name)
}

// Redacted wraps a token so it never reaches log output or serialized forms.
type Redacted string

// String implements fmt.Stringer.
func (Redacted) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer for %#v.
func (Redacted) GoString() string { return "logging.Redacted{[REDACTED]}" }

// LogValue implements slog.LogValuer.
func (Redacted) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// MarshalText implements encoding.TextMarshaler.
func (Redacted) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }
