package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always emits JSON;
// elsewhere LOG_FORMAT=json opts in, the default is human-readable text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg.IsProduction() || cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
