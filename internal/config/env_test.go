package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENGAGE_LLM_PROVIDER", "")
		t.Setenv("ENGAGE_LLM_TIMEOUT", "")
		t.Setenv("ENGAGE_DB_PATH", "")

		cfg := LoadFromEnv()
		assert.Equal(t, "", cfg.LLMProvider)
		assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
		assert.Equal(t, "./engage.db", cfg.DBPath)
		assert.Equal(t, "engage.events", cfg.AMQPQueue)
	})

	t.Run("provider and keys", func(t *testing.T) {
		t.Setenv("ENGAGE_LLM_PROVIDER", "anthropic")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		t.Setenv("OPENAI_API_KEY", "sk-oai")

		cfg := LoadFromEnv()
		assert.Equal(t, "anthropic", cfg.LLMProvider)
		assert.Equal(t, "sk-ant", cfg.APIKeyFor("anthropic"))
		assert.Equal(t, "sk-oai", cfg.APIKeyFor("openai"))
		assert.Equal(t, "", cfg.APIKeyFor("unknown"))
	})

	t.Run("timeout parsing", func(t *testing.T) {
		t.Setenv("ENGAGE_LLM_TIMEOUT", "5s")
		assert.Equal(t, 5*time.Second, LoadFromEnv().LLMTimeout)

		t.Setenv("ENGAGE_LLM_TIMEOUT", "12")
		assert.Equal(t, 12*time.Second, LoadFromEnv().LLMTimeout)

		t.Setenv("ENGAGE_LLM_TIMEOUT", "garbage")
		assert.Equal(t, 30*time.Second, LoadFromEnv().LLMTimeout)
	})
}

func TestLoadTenantOverrides(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		overrides, err := LoadTenantOverrides("")
		require.NoError(t, err)
		assert.Empty(t, overrides)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tenants.yaml")
		content := `tenants:
  acme:
    provider: gemini
    api_key: g-key
    model: gemini-2.0-flash
  globex:
    model: gpt-4o-mini
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		overrides, err := LoadTenantOverrides(path)
		require.NoError(t, err)
		require.Len(t, overrides, 2)
		assert.Equal(t, "gemini", overrides["acme"].Provider)
		assert.Equal(t, "g-key", overrides["acme"].APIKey)
		assert.Equal(t, "gpt-4o-mini", overrides["globex"].Model)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTenantOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
