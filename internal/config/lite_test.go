package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liteEnvVars = []string{
	"RADREPORT_DATA_DIR",
	"RADREPORT_USER",
	"RADREPORT_CACHE_MAX_ITEMS",
	"RADREPORT_CACHE_TTL",
	"RADREPORT_LLM_PROVIDER",
	"RADREPORT_LLM_MODEL",
	"RADREPORT_LLM_BASE_URL",
	"RADREPORT_LOG_LEVEL",
	"RADREPORT_LOG_FORMAT",
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range liteEnvVars {
		t.Setenv(v, "")
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "local", cfg.UserID)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("RADREPORT_DATA_DIR", "/tmp/test-radreport")
	t.Setenv("RADREPORT_USER", "dr-lee")
	t.Setenv("RADREPORT_CACHE_MAX_ITEMS", "500")
	t.Setenv("RADREPORT_CACHE_TTL", "1h")
	t.Setenv("RADREPORT_LLM_PROVIDER", "anthropic")
	t.Setenv("RADREPORT_LLM_MODEL", "claude-3-5-haiku-latest")
	t.Setenv("RADREPORT_LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-radreport", cfg.DataDir)
	assert.Equal(t, "dr-lee", cfg.UserID)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "anthropic-key", cfg.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)

	llm := cfg.LLM()
	assert.Equal(t, "claude-3-5-haiku-latest", llm.Model)
	assert.Equal(t, "anthropic-key", llm.APIKey)
	assert.Equal(t, "stderr", cfg.Logging().Output)
}

func TestLoadLiteConfig_IgnoresBadNumbers(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("RADREPORT_CACHE_MAX_ITEMS", "-3")
	t.Setenv("RADREPORT_CACHE_TTL", "soon")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "openai-key", cfg.APIKey)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.radreport-mcp"}

	assert.Equal(t, "/home/user/.radreport-mcp/logic.db", cfg.LogicDBPath())
	assert.Equal(t, "/home/user/.radreport-mcp/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "radreport")}

	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}
