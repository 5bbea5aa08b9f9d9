package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/hydro-sonify/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the stdout logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// NewWriterLogger is NewLogger writing to w instead of stdout. The terminal
// player uses it to keep log lines off the screen.
func NewWriterLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := newLogger(w, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
