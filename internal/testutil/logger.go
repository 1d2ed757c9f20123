package testutil

import (
	"fmt"
	"sync"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string // "notice" or "error"
	Message string
	Args    []any
}

// RecordingLogger records Notice and Error calls.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *RecordingLogger) Notice(msg string, args ...any) {
	l.record("notice", msg, args)
}

func (l *RecordingLogger) Error(msg string, args ...any) {
	l.record("error", msg, args)
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Args: args})
}

// Notices returns the messages logged at notice level.
func (l *RecordingLogger) Notices() []string {
	return l.messages("notice")
}

// Errors returns the messages logged at error level.
func (l *RecordingLogger) Errors() []string {
	return l.messages("error")
}

func (l *RecordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// String renders every entry, one per line, for failure messages.
func (l *RecordingLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s string
	for _, e := range l.entries {
		s += fmt.Sprintf("%s: %s %v\n", e.Level, e.Message, e.Args)
	}
	return s
}
