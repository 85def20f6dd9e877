package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. Dev gets debug level;
// everything else logs info and up.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if env == "dev" {
		opts.Level = slog.LevelDebug
	}

	return slog.New(NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts)))
}
