package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radreport-mcp-server/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestManagerDefaults(t *testing.T) {
	m, err := NewManagerFromFile(writeConfig(t, "environment: development\n"))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "openai", m.GetLLMConfig().Provider)
	assert.Equal(t, uint32(5), cfg.LLM.BreakerFailures)
	assert.Equal(t, 2.0, cfg.LLM.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Report.FetchTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "local", cfg.MCP.DefaultUser)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestManagerFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9000
database:
  sqlite_path: /var/lib/radreport/logic.db
llm:
  provider: anthropic
  model: claude-3-5-sonnet-latest
report:
  default_base_prompt: "Site preamble."
`)
	t.Setenv("RADREPORT_LLM_API_KEY", "from-env")

	m, err := NewManagerFromFile(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9000, m.GetServerConfig().Port)
	assert.Equal(t, "/var/lib/radreport/logic.db", m.GetDatabaseConfig().SQLitePath)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "Site preamble.", cfg.Report.DefaultBasePrompt)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestManagerValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad port", "server:\n  port: 70000\n", "invalid server port"},
		{"bad provider", "llm:\n  provider: local\n", "invalid llm provider"},
		{"bad cache", "cache:\n  backend: disk\n", "invalid cache backend"},
		{"bad level", "logging:\n  level: loud\n", "invalid log level"},
		{"no database host", "database:\n  host: \"\"\n", "database host is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManagerFromFile(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.ErrorContains(t, m.Validate(), tt.want)
		})
	}
}

func TestManagerReload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	m, err := NewManagerFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", m.GetConfig().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))
	require.NoError(t, m.Reload())
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
}

func TestManagerRejectsBrokenFile(t *testing.T) {
	_, err := NewManagerFromFile(writeConfig(t, "server: [unclosed\n"))
	assert.Error(t, err)
}

func TestApplyLogging(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	ApplyLogging(logger, domain.LoggingConfig{Level: "nonsense", Format: "json"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
