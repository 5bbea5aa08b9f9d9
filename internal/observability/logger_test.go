package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/couchcryptid/hydro-sonify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("part rebuilt", "voice", "piano", "station_id", "AR_0000001")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "part rebuilt", entry["msg"])
	assert.Equal(t, "piano", entry["voice"])
	assert.Equal(t, "AR_0000001", entry["station_id"])
}

func TestNewWriterLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, &config.Config{LogLevel: "debug", LogFormat: "text"})
	assert.Same(t, logger, slog.Default())

	logger.Debug("transport started", "bpm", 120)
	assert.Contains(t, buf.String(), "msg=\"transport started\"")
	assert.Contains(t, buf.String(), "bpm=120")
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.PartsActive.Set(4)
	assert.NotSame(t, a.PartsActive, b.PartsActive)
}
