package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Detection.Enabled)
	assert.Equal(t, 5, cfg.Detection.SpamThreshold)
	assert.Equal(t, 10, cfg.Detection.SpamWindowSec)
	assert.Equal(t, 3, cfg.Detection.NukeThreshold)
	assert.Equal(t, 300, cfg.Detection.PanicTimeoutSec)
	assert.Equal(t, 60, cfg.Detection.ActionCooldownSec)
	assert.Contains(t, cfg.AutoMod.AllowedDomains, "github.com")
	assert.NotEmpty(t, cfg.Permissions.StaffChannels)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"bot": {"token": "abc"},
		"detection": {"enabled": true, "spam_threshold": 8},
		"storage": {"database_path": "/tmp/x.db"}
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Bot.Token)
	assert.Equal(t, 8, cfg.Detection.SpamThreshold)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DatabasePath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, 5, cfg.Detection.SpamThreshold)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("DATABASE_PATH", "/tmp/env.db")

	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
}
