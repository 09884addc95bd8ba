package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/quizzer/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_Development(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "debug"
	var buf bytes.Buffer

	log, closer := newLogger(cfg, &buf)
	defer closer.Close()
	log.Debug("chunk ready", "chunk_id", "0_ab12")

	assert.Contains(t, buf.String(), "chunk_id=0_ab12")
}

func TestNewLogger_TestEnvIsQuiet(t *testing.T) {
	cfg := config.Defaults()
	cfg.Environment = config.EnvTest
	cfg.LogLevel = "debug"
	var buf bytes.Buffer

	log, _ := newLogger(cfg, &buf)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_ProductionWritesJSONFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Environment = config.EnvProduction
	cfg.LogDir = t.TempDir()
	var buf bytes.Buffer

	log, closer := newLogger(cfg, &buf)
	log.Info("run finished", "run_id", "01ABC")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, FileName))
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "01ABC", entry["run_id"])
	assert.Equal(t, line, strings.TrimSpace(buf.String()))
}
