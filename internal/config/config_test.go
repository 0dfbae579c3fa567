package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout/internal/models"
)

// isolate points the config dir at a temp dir and clears credential env vars
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvModel, "")
	for _, name := range apiKeyEnvVars {
		t.Setenv(name, "")
	}
	return dir
}

func TestDefaultConfig(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()

	assert.Equal(t, models.DefaultModel, cfg.DefaultModel)
	assert.Equal(t, BackendSDK, cfg.Backend)
	assert.Equal(t, 10, cfg.StreamDelayMS)
	assert.Equal(t, "sprout", cfg.TUITheme)
	assert.Equal(t, models.AllModels(), cfg.Models)
	assert.Equal(t, "dark", cfg.Markdown.Style)
	assert.True(t, strings.HasSuffix(cfg.LogFile, "sprout.log"))
}

func TestGetConfigDirHonoursEnv(t *testing.T) {
	dir := isolate(t)

	got, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), path)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultModel, cfg.DefaultModel)
	assert.Empty(t, cfg.APIKey)
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultConfig()
	cfg.DefaultModel = models.ModelGemini15Pro
	cfg.Backend = BackendREST
	cfg.StreamDelayMS = 0
	cfg.APIKey = "secret-key-never-saved"
	require.NoError(t, SaveConfig(cfg))

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key-never-saved")

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, models.ModelGemini15Pro, loaded.DefaultModel)
	assert.Equal(t, BackendREST, loaded.Backend)
	assert.Equal(t, time.Duration(0), loaded.StreamDelay())
	assert.Empty(t, loaded.APIKey)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Equal(t, models.DefaultModel, cfg.DefaultModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GENAI_API_KEY is preferred", func(t *testing.T) {
		isolate(t)
		t.Setenv("GENAI_API_KEY", "genai-key")
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "genai-key", cfg.APIKey)
	})

	t.Run("falls back to GEMINI_API_KEY", func(t *testing.T) {
		isolate(t)
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "gemini-key", cfg.APIKey)
	})

	t.Run("SPROUT_MODEL overrides default model", func(t *testing.T) {
		isolate(t)
		t.Setenv(EnvModel, "gemini-exp")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "gemini-exp", cfg.DefaultModel)
	})
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GENAI_API_KEY=from-dotenv\n"), 0o600))

	// godotenv does not overwrite set variables, so unset it first
	require.NoError(t, os.Unsetenv("GENAI_API_KEY"))
	t.Cleanup(func() { os.Unsetenv("GENAI_API_KEY") })

	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "from-dotenv", LookupAPIKey())
}

func TestLoadEnvMissingFileIsIgnored(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestRedactedKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "*****"},
		{"AIzaSyExampleKey1234", "AIza************1234"},
	}

	for _, tt := range tests {
		cfg := Config{APIKey: tt.key}
		assert.Equal(t, tt.want, cfg.RedactedKey())
	}
}

func TestSelectableModels(t *testing.T) {
	assert.Equal(t, models.AllModels(), Config{}.SelectableModels())
	assert.Equal(t, []string{"x"}, Config{Models: []string{"x"}}.SelectableModels())
}

func TestValidBackend(t *testing.T) {
	for _, b := range AvailableBackends() {
		assert.True(t, ValidBackend(b))
	}
	assert.False(t, ValidBackend("grpc"))
}
