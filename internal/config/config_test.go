package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/printerctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
port = "/dev/ttyACM0"
baud = 250000
interval = 0.5
ack_timeout = 10.0
read_timeout = 2.0
log_level = "debug"
monitor = true
`)
	configPath := filepath.Join(tempDir, "printerctl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	// Set environment variable to point to the test config file
	t.Setenv("PRINTERCTL_CONFIG", configPath)

	// Load the config
	cfg, err := config.Load()
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "/dev/ttyACM0", cfg.Port, "Expected Port /dev/ttyACM0")
	assert.Equal(t, 250000, cfg.Baud, "Expected Baud 250000")
	assert.InDelta(t, 0.5, cfg.Interval, 1e-9, "Expected Interval 0.5")
	assert.InDelta(t, 10.0, cfg.AckTimeout, 1e-9, "Expected AckTimeout 10")
	assert.InDelta(t, 2.0, cfg.ReadTimeout, 1e-9, "Expected ReadTimeout 2")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Monitor, "Expected Monitor true")
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.AckTimeoutDuration())
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("PRINTERCTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	// Assert default values
	assert.Empty(t, cfg.Port, "Expected no default Port")
	assert.Equal(t, 115200, cfg.Baud, "Expected default Baud 115200")
	assert.InDelta(t, 1.0, cfg.Interval, 1e-9, "Expected default Interval 1.0")
	assert.InDelta(t, 30.0, cfg.AckTimeout, 1e-9, "Expected default AckTimeout 30")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.False(t, cfg.Monitor, "Expected default Monitor false")
	assert.False(t, cfg.ListPorts, "Expected default ListPorts false")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	// Create an invalid test config file
	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "printerctl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("PRINTERCTL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
log_level = "invalid"
`)
	configPath := filepath.Join(tempDir, "printerctl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("PRINTERCTL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid log level")
}

func TestInvalidInterval(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
interval = -1.0
`)
	configPath := filepath.Join(tempDir, "printerctl.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("PRINTERCTL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}

func TestLogLevelFlag(t *testing.T) {
	// Save original args and restore after test
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	t.Setenv("PRINTERCTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	// Set test args
	os.Args = []string{"cmd", "--log-level", "debug", "--baud", "9600"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.Equal(t, 9600, cfg.Baud, "Expected Baud to be set by flag")
}
