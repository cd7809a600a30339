package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Logging.File)
	assert.NotEmpty(t, cfg.Sessions.ArchiveDir)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "helpdesk.json")

	data := `{
  "server": {"host": "127.0.0.1", "port": 9090},
  "domains": {"enabled": ["cafe"], "default": "cafe"},
  "data_dir": "` + tmpDir + `"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(data), 0600))

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"cafe"}, cfg.Domains.Enabled)
	assert.Equal(t, "cafe", cfg.Domains.Default)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Sessions.MaxIdleMinutes)
}

func TestLoad_EnvOverridesCredential(t *testing.T) {
	t.Setenv("HELPDESK_API_KEY", "sk-envkey123456789012345678901234567890")
	t.Setenv("HELPDESK_PROVIDER", "openai")

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.json")).Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-envkey123456789012345678901234567890", cfg.LLM.APIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoad_MalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "helpdesk.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := NewLoader(configPath).Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "helpdesk.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.Server.Port = 9191
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, loaded.Server.Port)
}
