package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInitSetsLevel(t *testing.T) {
	defer Init("info", "json")

	Init("debug", "text")
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelDebug))

	Init("error", "json")
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelWarn))
}
