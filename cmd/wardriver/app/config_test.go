package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetAPIKey(t *testing.T) {
	t.Helper()

	t.Setenv(apiKeyEnv, "") // restored after the test
	require.NoError(t, os.Unsetenv(apiKeyEnv))
}

func TestParseConfig(t *testing.T) {
	unsetAPIKey(t)

	data := []byte(`
settings:
  logLevel: debug
storage:
  dataDirectory: /var/lib/wardriver
whitelist: [Home-WiFi, Office]
host:
  name: pwn
  displayType: waveshare_4
  whitelist: [Office, Neighbour]
wigle:
  enabled: true
  apiKey: QUlEOnRva2Vu
  donate: true
  timeout: 2m
connectivity:
  interval: 1m
status:
  enabled: true
ui:
  enabled: true
  position: "10,20"
`)

	c, err := parseConfig(data, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, c.Settings.LogLevel)
	assert.Equal(t, "/var/lib/wardriver/wardriver.db", c.DatabasePath())
	assert.Equal(t, []string{"Home-WiFi", "Office", "Neighbour"}, c.EffectiveWhitelist())
	assert.Equal(t, "pwn", c.Host.Name)
	assert.Equal(t, "waveshare_4", c.Host.DisplayType)
	assert.True(t, c.Wigle.Enabled)
	assert.True(t, c.Wigle.Donate)
	assert.Equal(t, 2*time.Minute, c.Wigle.Timeout)
	assert.Equal(t, "https://api.wigle.net/api/v2/file/upload", c.Wigle.Endpoint)
	assert.Equal(t, time.Minute, c.Connectivity.Interval)
	assert.Equal(t, "api.wigle.net:443", c.Connectivity.ProbeAddress)
	assert.Equal(t, "127.0.0.1:8080", c.Status.Listen)
	assert.Equal(t, "10,20", c.UI.Position)

	assert.NoError(t, c.Validate())
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, slog.LevelInfo, c.Settings.LogLevel)
	assert.Equal(t, "/root/wardriver/wardriver.db", c.DatabasePath())
	assert.Equal(t, "wardriver", c.Host.Name)
	assert.Equal(t, "unknown", c.Host.DisplayType)
	assert.Equal(t, 10, c.GPS.Accuracy)
	assert.Equal(t, 5*time.Minute, c.Wigle.Timeout)
	assert.Equal(t, 30*time.Second, c.Connectivity.Interval)
	assert.False(t, c.Wigle.Enabled)
	assert.Empty(t, c.EffectiveWhitelist())
}

func TestParseConfig_UnknownKey(t *testing.T) {
	_, err := parseConfig([]byte("storage:\n  dataDir: /tmp\n"), t.TempDir())
	assert.Error(t, err)
}

func TestParseConfig_Empty(t *testing.T) {
	unsetAPIKey(t)

	c, err := parseConfig(nil, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestConfig_APIKeyFromEnvFile(t *testing.T) {
	unsetAPIKey(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wigle.env"), []byte("WIGLE_API_KEY=from-file\n"), 0o600))

	c, err := parseConfig([]byte("wigle:\n  enabled: true\n  apiKey: from-yaml\n  envFile: wigle.env\n"), dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.Wigle.APIKey)
}

func TestConfig_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv(apiKeyEnv, "from-env")

	c, err := parseConfig([]byte("wigle:\n  enabled: true\n  apiKey: from-yaml\n"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Wigle.APIKey)
}

func TestConfig_MissingEnvFile(t *testing.T) {
	_, err := parseConfig([]byte("wigle:\n  envFile: missing.env\n"), t.TempDir())
	assert.Error(t, err)
}

func TestConfig_ValidateDisablesUpload(t *testing.T) {
	unsetAPIKey(t)

	c, err := parseConfig([]byte("wigle:\n  enabled: true\n"), t.TempDir())
	require.NoError(t, err)

	err = c.Validate()
	assert.True(t, errors.Is(err, ErrConfigMissing))
	assert.False(t, c.Wigle.Enabled)
	assert.Nil(t, newUploader(c))
}

func TestLoadConfig(t *testing.T) {
	unsetAPIKey(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host:\n  name: pwn\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "pwn", c.Host.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
