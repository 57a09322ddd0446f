package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/llm"
	"github.com/radreport-mcp-server/internal/store"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func sqliteConfig(t *testing.T) *domain.Config {
	return &domain.Config{
		Database: domain.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "logic.db")},
		Cache:    domain.CacheConfig{Backend: "memory", MaxItems: 10, DefaultTTL: time.Minute},
		Report:   domain.ReportConfig{FetchTimeout: time.Second, DefaultBasePrompt: "Site preamble."},
	}
}

func TestNewWithSQLiteAndMemoryCache(t *testing.T) {
	completer := llm.CompleterFunc(func(context.Context, string) (string, error) { return "Impression: ok", nil })
	a, err := New(context.Background(), sqliteConfig(t), quietLogger(), WithCompleter(completer))
	require.NoError(t, err)

	_, ok := a.Store.(*store.CachedStore)
	assert.True(t, ok)
	assert.NoError(t, a.Health(context.Background()))

	res, err := a.Reports.Generate(context.Background(), domain.Session{UserID: "u1"},
		domain.ReportRequest{StudyType: "ct", Findings: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Impression: ok", res.Text)

	tree, err := a.Logic.GetBaseLogic(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "3.0", tree["version"])

	assert.NoError(t, a.Close())
}

func TestNewWithoutCache(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Cache.Backend = "none"
	a, err := New(context.Background(), cfg, quietLogger(), WithCompleter(llm.CompleterFunc(
		func(context.Context, string) (string, error) { return "", nil })))
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Store.(*store.SQLiteStore)
	assert.True(t, ok)
}

func TestNewRejectsBadSettings(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Cache.Backend = "memcached"
	_, err := New(context.Background(), cfg, quietLogger(), WithCompleter(llm.CompleterFunc(
		func(context.Context, string) (string, error) { return "", nil })))
	assert.ErrorContains(t, err, "unknown cache backend")

	cfg = sqliteConfig(t)
	cfg.LLM = domain.LLMConfig{Provider: "openai"}
	_, err = New(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "completion backend")
}
