package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"dex-datafeed/src/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&models.MConfig{LogLevel: "WARNING"}, "Datafeed", &buf)

	log.Info("hidden %d", 1)
	log.Warning("rate %.1f", 2.5)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Datafeed", entry["component"])
	assert.Equal(t, "rate 2.5", entry["message"])
}

func TestNamedSharesSinkAndLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter(&models.MConfig{LogLevel: "ERROR"}, "Parent", &buf)
	child := parent.Named("Child")

	child.Warning("dropped")
	child.Error("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"component":"Child"`)
	assert.NotContains(t, buf.String(), `"component":"Parent"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" ERROR "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}
