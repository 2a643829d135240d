// Package logging provides utilities for structured logging across the system.
//
// Design principles:
//   - Logging is dependency-injected, never global
//   - Each component owns its own scoped logger
//   - Logger scoping happens once at construction time
//   - If no logger is provided, a discard logger is used
//
// Global configuration (output format, level, destination) belongs only in
// main(). Components must never call slog.SetDefault or access global
// loggers.
//
// Logging is intentionally sparse: lifecycle boundaries and anomalies are
// the intended log points. Nothing logs on the per-tile hot path above
// Debug level.
package logging

import (
	"context"
	"log/slog"
)

// discardHandler is a handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns the provided logger if non-nil, otherwise a discard
// logger. This is the standard pattern for optional logger parameters:
//
//	func New(cfg Config) *Component {
//	    return &Component{logger: logging.Default(cfg.Logger).With("component", "name")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// Source returns a logger scoped to a tile source: component="source"
// plus the backend type and the source identifier. All source factories
// use this so per-source log lines carry uniform attributes.
func Source(logger *slog.Logger, typ, id string) *slog.Logger {
	return Default(logger).With("component", "source", "type", typ, "source", id)
}
