// Package log builds the slog loggers the rest of recontk receives by
// injection. Nothing here is global; each component gets a logger via
// its constructor and narrows it with With.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config controls handler construction.
type Config struct {
	Level     slog.Level
	JSON      bool
	AddSource bool
}

// New returns a logger writing to stderr.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w. Tests pass a buffer
// here to inspect output.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// NewFile returns a logger appending to the file at path, creating it
// if needed.
func NewFile(path string, cfg Config) (*slog.Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWithWriter(f, cfg), nil
}

// NewNop returns a logger that discards everything. Test use only.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
