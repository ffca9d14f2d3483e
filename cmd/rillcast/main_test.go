package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rillcast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, permissionsMode string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	grants := filepath.Join(dir, "grants.yaml")
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
media:
  mode: noop
permissions:
  mode: %s
  grants_file: %s
logging:
  level: error
`, permissionsMode, grants)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, grants
}

func TestRun_Help(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run("help", nil, strings.NewReader(""), out))
	assert.Contains(t, out.String(), "broadcast")

	err := run("bogus", nil, strings.NewReader(""), out)
	assert.ErrorContains(t, err, `unknown command "bogus"`)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path, grants := writeConfig(t, "grant")
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Media.Mode)
	assert.Equal(t, grants, cfg.Permissions.GrantsFile)
}

func TestPermissionsCommand(t *testing.T) {
	path, _ := writeConfig(t, "grant")
	out := &bytes.Buffer{}
	require.NoError(t, run("permissions", []string{"-config", path, "-log-format", "json", "status"}, strings.NewReader(""), out))
	assert.Contains(t, out.String(), "camera:     granted")
	assert.Contains(t, out.String(), "microphone: granted")
}

func TestPermissionsCommand_RequestAndReset(t *testing.T) {
	path, grants := writeConfig(t, "prompt")
	out := &bytes.Buffer{}
	in := strings.NewReader("y\nnever\n")

	require.NoError(t, run("permissions", []string{"-config", path, "request"}, in, out))
	assert.Contains(t, out.String(), "camera:     granted")
	assert.Contains(t, out.String(), "microphone: denied")
	assert.Contains(t, out.String(), "Permissions required")
	assert.FileExists(t, grants)

	out.Reset()
	require.NoError(t, run("permissions", []string{"-config", path, "reset"}, strings.NewReader(""), out))
	assert.Contains(t, out.String(), "cleared")
	assert.NoFileExists(t, grants)

	err := run("permissions", []string{"-config", path, "explode"}, strings.NewReader(""), out)
	assert.Error(t, err)
}

func TestRoomsCommand_Empty(t *testing.T) {
	path, _ := writeConfig(t, "grant")
	out := &bytes.Buffer{}
	require.NoError(t, run("rooms", []string{"-config", path}, strings.NewReader(""), out))
	assert.Contains(t, out.String(), "No live streams.")
}

func TestWatchCommand_RequiresRoom(t *testing.T) {
	err := run("watch", nil, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "-room is required")
}

func TestNewFlagSet_LogFormatDefaultsToConfig(t *testing.T) {
	var cf commonFlags
	fs := newFlagSet("rooms", &cf)
	require.NoError(t, fs.Parse(nil))
	assert.Empty(t, cf.logFormat)

	require.NoError(t, fs.Parse([]string{"-log-format", "console"}))
	assert.Equal(t, "console", cf.logFormat)
}

func TestViewerCounter_PrintsChangesOnce(t *testing.T) {
	out := &bytes.Buffer{}
	counter := newViewerCounter(out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.observe(domain.SessionMetadata{IsLive: true, ViewerCount: 3})
		}()
	}
	wg.Wait()
	counter.observe(domain.SessionMetadata{IsLive: false, ViewerCount: 0})
	counter.observe(domain.SessionMetadata{IsLive: true, ViewerCount: 4})

	assert.Equal(t, "viewers: 3\nviewers: 4\n", out.String())
}
