package postimport

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_NoticeLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo, ReplaceAttr: ReplaceLevel})
	logger := NewSlogLogger(slog.New(handler))

	logger.Notice("dropped", "resource", "r1")
	logger.Error("drop failed", "resource", "r2")

	out := buf.String()
	assert.Contains(t, out, "level=NOTICE msg=dropped resource=r1")
	assert.Contains(t, out, "level=ERROR msg=\"drop failed\" resource=r2")
}

func TestSlogLogger_NoticeFilteredAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	NewSlogLogger(slog.New(handler)).Notice("quiet")

	assert.Empty(t, buf.String())
}
