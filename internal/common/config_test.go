package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "generic", config.Strategies.DefaultID)
	assert.True(t, config.Browser.Headless)
	assert.False(t, config.Automation.AIEnabled)
	assert.NoError(t, config.Validate())
}

func TestLoadFromFilesLayersOverrides(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.toml", `
environment = "production"

[browser]
pool_size = 4
`)
	local := writeConfig(t, dir, "local.toml", `
[browser]
pool_size = 8

[strategies]
definitions_dir = "/etc/applyr/strategies"
`)

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)
	assert.Equal(t, "production", config.Environment)
	// The later file wins field by field.
	assert.Equal(t, 8, config.Browser.PoolSize)
	assert.Equal(t, "/etc/applyr/strategies", config.Strategies.DefinitionsDir)
	// Untouched fields keep their defaults.
	assert.Equal(t, "30s", config.Browser.NavTimeout)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APPLYR_LOG_LEVEL", "debug")
	t.Setenv("APPLYR_HEADLESS", "false")
	t.Setenv("APPLYR_VISION_PROVIDER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "claude", config.Vision.Provider)
	assert.Equal(t, "sk-env", config.Vision.Claude.APIKey)
}

func TestEnvDoesNotOverrideExplicitAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	dir := t.TempDir()
	path := writeConfig(t, dir, "keys.toml", `
[vision.claude]
api_key = "sk-file"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", config.Vision.Claude.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool size", func(c *Config) { c.Browser.PoolSize = 0 }},
		{"bad nav timeout", func(c *Config) { c.Browser.NavTimeout = "soon" }},
		{"bad debounce", func(c *Config) { c.Strategies.WatchDebounce = "half a second" }},
		{"bad flush schedule", func(c *Config) { c.Metrics.FlushSchedule = "every 5 minutes" }},
		{"bad vision provider", func(c *Config) { c.Vision.Provider = "gpt4" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestDurationHelpersFallBack(t *testing.T) {
	browser := &BrowserConfig{NavTimeout: "bogus", ElementTimeout: "250ms"}
	assert.Equal(t, 30*time.Second, browser.NavTimeoutDuration())
	assert.Equal(t, 250*time.Millisecond, browser.ElementTimeoutDuration())

	strategies := &StrategiesConfig{WatchDebounce: ""}
	assert.Equal(t, 500*time.Millisecond, strategies.WatchDebounceDuration())
}
