package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		level slog.Level
		ok    bool
	}{
		"debug":   {slog.LevelDebug, true},
		"INFO":    {slog.LevelInfo, true},
		"":        {slog.LevelInfo, true},
		"warning": {slog.LevelWarn, true},
		"error":   {slog.LevelError, true},
		"loud":    {slog.LevelInfo, false},
	}
	for in, want := range cases {
		level, ok := ParseLevel(in)
		assert.Equal(t, want.level, level, in)
		assert.Equal(t, want.ok, ok, in)
	}
}

func TestNew_JSONWithRFC3339Time(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Debug("hidden")
	l.Info("calculated", slog.String("component", "engine"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "exactly one JSON line")
	assert.Equal(t, "calculated", line["msg"])
	assert.Equal(t, "engine", line["component"])
	_, err := time.Parse(time.RFC3339, line["time"].(string))
	assert.NoError(t, err)
}
