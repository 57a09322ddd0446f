package mcp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/cache"
	"github.com/radreport-mcp-server/internal/config"
	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/llm"
	"github.com/radreport-mcp-server/internal/service"
	"github.com/radreport-mcp-server/internal/store"
)

// LiteServer is the standalone MCP server: SQLite persistence, an in-memory
// cache, and no other external services.
type LiteServer struct {
	*Server
	store domain.LogicStore
}

// LiteOption configures a LiteServer.
type LiteOption func(*liteOptions)

type liteOptions struct {
	logger    *logrus.Logger
	completer domain.Completer
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteOption {
	return func(o *liteOptions) { o.logger = logger }
}

// WithCompleter replaces the configured completion backend.
func WithCompleter(c domain.Completer) LiteOption {
	return func(o *liteOptions) { o.completer = c }
}

// NewLiteServer opens the SQLite store under cfg.DataDir and registers the
// tools. Without an API key generate_report is not offered.
func NewLiteServer(cfg *config.LiteConfig, opts ...LiteOption) (*LiteServer, error) {
	o := &liteOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = config.NewLogger(cfg.Logging())
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	sqlite, err := store.NewSQLiteStore(cfg.LogicDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open logic store: %w", err)
	}
	memCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	logicStore := store.NewCachedStore(sqlite, memCache, o.logger)

	deps := Dependencies{
		Logic:  service.NewLogicService(logicStore, o.logger, 0),
		Logger: o.logger,
	}

	completer := o.completer
	if completer == nil {
		resilient, err := llm.New(cfg.LLM(), o.logger)
		if err != nil {
			o.logger.WithError(err).Warn("Completion backend unavailable; generate_report disabled")
		} else {
			completer = resilient
		}
	}
	if completer != nil {
		deps.Reports = service.NewReportGenerator(logicStore, completer, o.logger)
	}

	o.logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"user_id":  cfg.UserID,
	}).Info("Lite server initialized")

	return &LiteServer{
		Server: NewServer(Info{Name: "radreport-mcp-server-lite", DefaultUser: cfg.UserID}, deps),
		store:  logicStore,
	}, nil
}

// Close releases the store and cache.
func (s *LiteServer) Close() error {
	return s.store.Close()
}
