// Package config loads server configuration: a viper-backed manager for the
// full server and an environment-only configuration for standalone use.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/radreport-mcp-server/internal/domain"
)

// LiteConfig configures the standalone MCP server. It needs no external
// services: logic lives in SQLite and records are cached in memory.
type LiteConfig struct {
	DataDir string
	// UserID owns logic created through tool calls that name no user.
	UserID string

	CacheMaxItems int
	CacheTTL      time.Duration

	LLMProvider string
	LLMModel    string
	LLMBaseURL  string
	APIKey      string

	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".radreport-mcp"),
		UserID:        "local",
		CacheMaxItems: 1000,
		CacheTTL:      10 * time.Minute,
		LLMProvider:   "openai",
		LLMModel:      "gpt-4o-mini",
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig overlays RADREPORT_* environment variables on the defaults.
// The API key comes from OPENAI_API_KEY or ANTHROPIC_API_KEY according to
// the provider.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("RADREPORT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RADREPORT_USER"); v != "" {
		cfg.UserID = v
	}

	if v := os.Getenv("RADREPORT_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("RADREPORT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("RADREPORT_LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("RADREPORT_LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	cfg.LLMBaseURL = os.Getenv("RADREPORT_LLM_BASE_URL")
	if cfg.LLMProvider == "anthropic" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	} else {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if v := os.Getenv("RADREPORT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RADREPORT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// LogicDBPath returns the path to the SQLite logic database.
func (c *LiteConfig) LogicDBPath() string {
	return filepath.Join(c.DataDir, "logic.db")
}

// ExportDir returns the directory for JSON bundle exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// LLM converts the lite settings into the completion configuration.
func (c *LiteConfig) LLM() domain.LLMConfig {
	return domain.LLMConfig{
		Provider:        c.LLMProvider,
		APIKey:          c.APIKey,
		BaseURL:         c.LLMBaseURL,
		Model:           c.LLMModel,
		MaxTokens:       2048,
		Timeout:         60 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    500 * time.Millisecond,
		RateLimit:       2,
		Burst:           4,
		BreakerFailures: 5,
	}
}

// Logging converts the lite settings into a logging section. MCP stdio owns
// stdout, so logs always go to stderr.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}
