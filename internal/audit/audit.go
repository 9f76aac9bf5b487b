// Package audit records one structured entry per successful tool
// operation. The default sink is the process logger; a Postgres sink
// is available for installations that keep an operation history.
package audit

import (
	"context"
	"log/slog"
)

// SlogRecorder writes audit records through a slog logger.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder wraps logger as an audit sink.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	return &SlogRecorder{logger: logger.With("audit", true)}
}

// Record emits the entry at info level.
func (r *SlogRecorder) Record(_ context.Context, operation string, details map[string]any) {
	args := make([]any, 0, len(details)*2+2)
	args = append(args, "operation", operation)
	for k, v := range details {
		args = append(args, k, v)
	}
	r.logger.Info("operation", args...)
}
