package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the JSON logger shared by the API, the worker and the CLI.
// Records carry trace and request ids when the context has them.
func NewLogger(env, level string) *slog.Logger {
	lvl := parseLevel(level)
	if env == "dev" && level == "" {
		lvl = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(NewTraceHandler(handler)).With(slog.String("env", env))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
