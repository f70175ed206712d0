package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fdsbatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
fds2ascii: /opt/fds/bin/fds2ascii
results: /data/run42
out: /data/run42-csv
chid: run42
time: 0-200
vars: 9
groups: 1-3,7
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/fds/bin/fds2ascii", cfg.Tool)
	assert.Equal(t, "/data/run42", cfg.Input)
	assert.Equal(t, "/data/run42-csv", cfg.Output)
	assert.Equal(t, "run42", cfg.CHID)
	assert.Equal(t, "0-200", cfg.Time)
	assert.Equal(t, 9, cfg.Vars)
	assert.Equal(t, "1-3,7", cfg.Groups)
}

func TestLoadConfigPartial(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "chid: job7\n"))
	require.NoError(t, err)
	assert.Equal(t, "job7", cfg.CHID)
	assert.Empty(t, cfg.Tool)
	assert.Zero(t, cfg.Vars)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "chids: typo\n"))
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeFor(err))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeFor(err))
}
