package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jobboard/apiserver/config"
)

// New builds the process logger and installs it as the slog default.
// Production gets JSON lines, everything else human-readable text.
func New(cfg config.Config) *slog.Logger {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
