package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_FallsBackOnBadLevel(t *testing.T) {
	l := New("not-a-level")
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNewLogger_FormatSelectsEncoder(t *testing.T) {
	var jsonOut bytes.Buffer
	l := newLogger("info", "json", FileOptions{}, zapcore.AddSync(&jsonOut))
	l.Info("joined room", zap.String("room_id", "r1"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &entry))
	assert.Equal(t, "joined room", entry["msg"])
	assert.Equal(t, "r1", entry["room_id"])

	var consoleOut bytes.Buffer
	l = newLogger("info", "console", FileOptions{}, zapcore.AddSync(&consoleOut))
	l.Info("joined room", zap.String("room_id", "r1"))

	line := consoleOut.String()
	assert.False(t, json.Valid([]byte(strings.TrimSpace(line))))
	assert.Contains(t, line, "joined room")
	assert.Contains(t, line, `{"room_id": "r1"}`)
}

func TestNewWithFile_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rillcast.log")
	var console bytes.Buffer
	l := newLogger("debug", "console", FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1}, zapcore.AddSync(&console))
	l.Info("hello", zap.String("room_id", "r1"))
	l.Debug("peer joined", zap.String("peer_id", "p1"))
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0]["msg"])
	assert.Equal(t, "r1", entries[0]["room_id"])
	assert.Equal(t, "debug", entries[1]["level"])

	assert.Contains(t, console.String(), "hello")
}

func TestNewWithFile_LevelFiltersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rillcast.log")
	l := newLogger("warn", "json", FileOptions{Path: path, MaxSizeMB: 1}, zapcore.AddSync(&bytes.Buffer{}))
	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
}
