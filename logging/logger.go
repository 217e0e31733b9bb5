// Package logging provides the leveled loggers used by every engine. Records
// written by a rank carry a "rank" attribute so that the interleaved output of
// a run can be split apart afterwards.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is a level below Debug for per-cell and per-message output.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level. Supported values are "info",
// "debug" and "trace" (case-insensitive). Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger which drops everything. It is what engines use
// when they are handed a nil logger.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// ForRank returns l tagged with the given rank. A nil l gives a discarding
// logger.
func ForRank(l *slog.Logger, rank int) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l.With("rank", rank)
}

// Trace logs at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
