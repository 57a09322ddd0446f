// Package app assembles the services behind the full HTTP and MCP servers.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/cache"
	"github.com/radreport-mcp-server/internal/database"
	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/llm"
	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/repository"
	"github.com/radreport-mcp-server/internal/service"
	"github.com/radreport-mcp-server/internal/store"
)

// App holds the wired services and the resources they own.
type App struct {
	Store    domain.LogicStore
	Logic    *service.LogicService
	Reports  *service.ReportGenerator
	Compiler *prompts.Compiler

	db     *database.DB
	logger *logrus.Logger
}

// Option adjusts assembly.
type Option func(*options)

type options struct {
	completer domain.Completer
	cache     cache.Cache
}

// WithCompleter skips building the configured completion backend.
func WithCompleter(c domain.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithCache replaces the configured cache backend.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// New opens the configured store and cache and builds the services.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{logger: logger}
	backing, err := a.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	c := o.cache
	if c == nil {
		if c, err = openCache(ctx, cfg.Cache); err != nil {
			_ = backing.Close()
			a.closeDB()
			return nil, err
		}
	}
	if c != nil {
		a.Store = store.NewCachedStore(backing, c, logger)
	} else {
		a.Store = backing
	}

	completer := o.completer
	if completer == nil {
		resilient, err := llm.New(cfg.LLM, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create completion backend: %w", err)
		}
		completer = resilient
	}

	var compilerOpts []prompts.Option
	if cfg.Report.DefaultBasePrompt != "" {
		compilerOpts = append(compilerOpts, prompts.WithDefaultPreamble(cfg.Report.DefaultBasePrompt))
	}
	a.Compiler = prompts.NewCompiler(compilerOpts...)
	a.Logic = service.NewLogicService(a.Store, logger, cfg.Report.FetchTimeout)
	a.Reports = service.NewReportGenerator(a.Store, completer, logger,
		service.WithCompiler(a.Compiler),
		service.WithFetchTimeout(cfg.Report.FetchTimeout))

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg domain.DatabaseConfig) (domain.LogicStore, error) {
	if cfg.SQLitePath != "" {
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		a.logger.WithField("path", cfg.SQLitePath).Info("Using SQLite logic store")
		return s, nil
	}

	dbCfg := database.ConfigFrom(cfg)
	if cfg.AutoMigrate {
		runner, err := database.NewMigrationRunner(dbCfg.URL(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare migrations: %w", err)
		}
		err = runner.Up()
		_ = runner.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewConnection(ctx, dbCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	return repository.NewLogicRepository(db.Pool, a.logger), nil
}

func openCache(ctx context.Context, cfg domain.CacheConfig) (cache.Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return c, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Health checks the database when one is in use.
func (a *App) Health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Health(ctx)
}

// Close releases the store, cache and pool.
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	a.closeDB()
	return err
}

func (a *App) closeDB() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
