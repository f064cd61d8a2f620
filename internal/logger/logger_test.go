package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"autofilter/internal/config"
)

func entry(level zapcore.Level, msg string) zapcore.Entry {
	return zapcore.Entry{Level: level, Message: msg, Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestRecentKeepsOnlyWarnings(t *testing.T) {
	r := NewRecent(3)
	require.NoError(t, r.Hook(entry(zapcore.InfoLevel, "ignored")))
	require.NoError(t, r.Hook(entry(zapcore.ErrorLevel, "store down")))

	lines := r.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "2024-01-02 03:04:05 ERROR store down", lines[0])
}

func TestRecentWrapsOldestFirst(t *testing.T) {
	r := NewRecent(2)
	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, r.Hook(entry(zapcore.WarnLevel, m)))
	}

	lines := r.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "WARN b")
	assert.Contains(t, lines[1], "WARN c")
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.RecentEntries = 4

	l, recent, err := New(cfg)
	require.NoError(t, err)
	l.Warn("first warning")
	assert.Len(t, recent.Lines(), 1)
}
