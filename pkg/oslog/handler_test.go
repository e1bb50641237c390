package oslog

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	level slog.Level
	msg   string
}

func capture(level slog.Leveler) (*slog.Logger, *[]entry) {
	var entries []entry
	h := newHandler(level, func(l slog.Level, msg string) {
		entries = append(entries, entry{l, msg})
	})
	return slog.New(h), &entries
}

func TestHandler_Format(t *testing.T) {
	logger, entries := capture(slog.LevelDebug)

	logger.Info("connected",
		"host", "example.com",
		"reason", "two words",
		"empty", "",
		"timeout", 5*time.Second,
		"bytes", 42)

	require.Len(t, *entries, 1)
	assert.Equal(t, slog.LevelInfo, (*entries)[0].level)
	assert.Equal(t, `connected host=example.com reason="two words" empty="" timeout=5s bytes=42`, (*entries)[0].msg)
}

func TestHandler_Level(t *testing.T) {
	logger, entries := capture(slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	require.Len(t, *entries, 2)
	assert.Equal(t, slog.LevelWarn, (*entries)[0].level)
	assert.Equal(t, slog.LevelError, (*entries)[1].level)
}

func TestHandler_GroupsAndAttrs(t *testing.T) {
	logger, entries := capture(nil)

	logger.With("client", "ws").WithGroup("frame").Info("read",
		"op", "text",
		slog.Group("mask", "set", true))

	require.Len(t, *entries, 1)
	assert.Equal(t, "read client=ws frame.op=text frame.mask.set=true", (*entries)[0].msg)
}

func TestHandler_WithAttrsDoesNotShare(t *testing.T) {
	logger, entries := capture(nil)

	base := logger.With("a", 1)
	base.With("b", 2).Info("first")
	base.With("c", 3).Info("second")

	require.Len(t, *entries, 2)
	assert.Equal(t, "first a=1 b=2", (*entries)[0].msg)
	assert.Equal(t, "second a=1 c=3", (*entries)[1].msg)
}
