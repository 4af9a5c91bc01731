package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/vsh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_json(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(config.Log{Level: "warn", Format: "json", Path: logPath})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNew_console(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(config.Log{Level: "debug", Format: "console", Path: logPath})
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "hello")
}

func TestNew_errors(t *testing.T) {
	_, err := New(config.Log{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(config.Log{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
