package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fitsync", cmd.Use)
	assert.Contains(t, cmd.Long, "offline")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"status"}, {"sync"}, {"resolve"}, {"reset"}, {"debug-day"}, {"logout"},
		{"record", "list"}, {"record", "set"}, {"record", "photo"}, {"record", "unphoto"}, {"record", "delete"},
		{"serve"}, {"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		path []string
		flag string
		def  string
	}{
		{[]string{"resolve"}, "use", ""},
		{[]string{"reset"}, "yes", "false"},
		{[]string{"record", "set"}, "pullups", "0"},
		{[]string{"record", "set"}, "weight", "0"},
		{[]string{"serve"}, "listen", ""},
		{[]string{"serve"}, "flush-interval", "30s"},
		{[]string{"serve"}, "sync-interval", "0s"},
		{[]string{"test"}, "update", "false"},
		{[]string{"test"}, "filter", ""},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find(tt.path)
		require.NoError(t, err)
		f := sub.Flags().Lookup(tt.flag)
		require.NotNil(t, f, "%v --%s", tt.path, tt.flag)
		assert.Equal(t, tt.def, f.DefValue, "%v --%s", tt.path, tt.flag)
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "logout"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// testEnv is a config file with every path under a temp dir, a fake API
// and a fixed clock.
type testEnv struct {
	dir    string
	config string
	clock  *testutil.Clock
	remote *testutil.FakeClient
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
store:
  path: %q
prefs:
  shared_path: %q
  legacy_path: ""
logging:
  level: warn
  file: %q
timeline:
  location: UTC
`, filepath.Join(dir, "fitsync.db"), filepath.Join(dir, "defaults.db"), filepath.Join(dir, "fitsync.log"))
	require.NoError(t, os.WriteFile(config, []byte(content), 0o600))

	clock := testutil.NewClock(testNow)
	return &testEnv{
		dir:    dir,
		config: config,
		clock:  clock,
		remote: testutil.NewFakeClient(clock),
	}
}

// run executes one CLI invocation and returns its stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWith(t, &RootOptions{Remote: e.remote, Clock: e.clock}, args...)
}

func (e *testEnv) runWith(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommandWithOptions(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
