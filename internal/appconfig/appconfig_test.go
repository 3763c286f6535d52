package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadOrDefault_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)

	d, err := cfg.PollDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/tmp/aiosync-test"
log_level = "debug"
poll_interval = "30s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/aiosync-test", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)

	d, err := cfg.PollDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestLoad_PartialFileKeepsRemainingDefaults(t *testing.T) {
	path := writeConfig(t, `log_level = "warn"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "5m", cfg.PollInterval)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level = "loud"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_RejectsInvalidPollInterval(t *testing.T) {
	path := writeConfig(t, `poll_interval = "sometimes"`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `log_level = `)

	_, err := Load(path)
	require.Error(t, err)
}
