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
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_TerminalOnly(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	logger, done, err := Setup(Options{Level: "warn", Stderr: &buf})
	require.NoError(t, err)
	defer done()

	logger.Info("hidden")
	logger.Warn("shown", "day", 3)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "day=3")
	assert.Same(t, logger, slog.Default())
}

func TestSetup_VerboseOnlyAffectsTerminal(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "fitsync.log")

	logger, done, err := Setup(Options{Level: "info", Verbose: true, File: path, Stderr: &buf})
	require.NoError(t, err)
	logger.Debug("trace detail")
	logger.Info("sync finished", "uploaded", 2)
	done()

	assert.Contains(t, buf.String(), "trace detail")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sync finished", entry["msg"])
	assert.EqualValues(t, 2, entry["uploaded"])
}

func TestSetup_BadLogPath(t *testing.T) {
	restoreDefault(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, _, err := Setup(Options{File: filepath.Join(blocker, "x.log"), Stderr: &bytes.Buffer{}})
	assert.Error(t, err)
}
