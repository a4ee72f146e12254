package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Service: "reach-test"})

	l.Debug("hidden %d", 1)
	assert.Zero(t, buf.Len(), "debug must be filtered at info level")

	l.WithField("creator_id", "c1").WithError(errors.New("boom")).Warn("tier %s", "changed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "tier changed", entry["message"])
	assert.Equal(t, "c1", entry["creator_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "reach-test", entry["service"])
}
