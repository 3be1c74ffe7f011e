// Package telemetry configures structured logging and Prometheus
// metrics for the audit service.
package telemetry

import (
	"log/slog"
	"os"
)

// InitLogger configures the process-wide default logger with JSON
// output on stdout.
func InitLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
