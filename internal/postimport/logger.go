package postimport

import (
	"context"
	"log/slog"
)

// LevelNotice sits between info and warn. Compensating actions such as a
// successful drop are logged at this level.
const LevelNotice = slog.LevelInfo + 2

// Logger separates operator-actionable failures from notices.
type Logger interface {
	Notice(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger writes to a slog.Logger, using LevelNotice for notices.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlogLogger wraps l, or slog.Default() when l is nil.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{L: l}
}

func (s *SlogLogger) Notice(msg string, args ...any) {
	s.L.Log(context.Background(), LevelNotice, msg, args...)
}

func (s *SlogLogger) Error(msg string, args ...any) {
	s.L.Error(msg, args...)
}

// ReplaceLevel names LevelNotice "NOTICE" in handler output. Use it as
// slog.HandlerOptions.ReplaceAttr.
func ReplaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelNotice {
		a.Value = slog.StringValue("NOTICE")
	}
	return a
}
