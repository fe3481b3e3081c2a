package log

import (
	"io"
	"log/slog"
	"strings"
)

const (
	JSONFormat = "json"
	TextFormat = "text"
)

// New creates a [slog.Logger] writing to w with the given level and format.
func New(w io.Writer, logLevel, logFormat string) *slog.Logger {
	return slog.New(CreateHandler(w, logLevel, logFormat))
}

// CreateHandler creates a [slog.Handler] by strings. Unknown formats fall
// back to text.
func CreateHandler(w io.Writer, logLevel, logFormat string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: GetLevel(logLevel),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}

	switch strings.ToLower(logFormat) {
	case JSONFormat:
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

func GetLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	case "debug", "trace":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
