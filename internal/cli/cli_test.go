package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "luminara", cmd.Use)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["plan"])

	for _, flag := range []string{"config", "verbose", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestInvalidLogFormat(t *testing.T) {
	_, _, err := execute(t, "plan", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestPlanCommand(t *testing.T) {
	out, _, err := execute(t, "plan")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan", []byte(out))
}

func TestRunCommand(t *testing.T) {
	out, _, err := execute(t, "run", "--ticks", "135", "--entities", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "ticks:     135\n")
	assert.Contains(t, out, "spawned:   20\n")
	assert.Contains(t, out, "despawned: 20\n")
	assert.Contains(t, out, "alive:     0\n")
	assert.Contains(t, out, "elapsed:")
}

func TestRunCommandUsesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luminara.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ticks: 2\nworkers: 2\nlog_format: json\n"), 0o600))

	out, stderr, err := execute(t, "--config", path, "--verbose", "run", "--entities", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "ticks:     2\n")
	assert.Contains(t, out, "alive:     5\n")
	assert.Contains(t, stderr, `"msg":"running"`)
}

func TestRunCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luminara.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o600))

	_, _, err := execute(t, "--config", path, "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandBadProfile(t *testing.T) {
	_, _, err := execute(t, "run", "--ticks", "1", "--profile", "gpu")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandServesMetrics(t *testing.T) {
	out, stderr, err := execute(t, "--verbose", "run", "--ticks", "1", "--entities", "1", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "ticks:     1\n")
	assert.Contains(t, stderr, "serving metrics")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	wrapped := WrapExitError(ExitCommandError, "bad", errors.New("cause"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "bad: cause", wrapped.Error())
	assert.Equal(t, "only", (&ExitError{Code: 3, Message: "only"}).Error())
}
