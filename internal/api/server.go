package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/middleware"
	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the services the HTTP surface exposes.
type Dependencies struct {
	Logic    *service.LogicService
	Reports  *service.ReportGenerator
	Compiler *prompts.Compiler
	Health   HealthCheck
	Logger   *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logic         *service.LogicService
	reports       *service.ReportGenerator
	compiler      *prompts.Compiler
	health        HealthCheck
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	compiler := deps.Compiler
	if compiler == nil {
		compiler = prompts.NewCompiler()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	s := &Server{
		configManager: configManager,
		logic:         deps.Logic,
		reports:       deps.Reports,
		compiler:      compiler,
		health:        deps.Health,
		log:           logger,
		router:        router,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.handleHealth)

	v1.POST("/prompts/compile", s.handleCompile)
	v1.POST("/rules/parse", s.handleParseRules)

	v1.GET("/global", s.handleGetGlobal)
	v1.PUT("/global", s.requireSession(), s.handlePutGlobal)

	users := v1.Group("/users/:user", s.requireSession(), s.requireOwner())
	{
		users.GET("/logic", s.handleGetBaseLogic)
		users.PUT("/logic", s.handlePutBaseLogic)
		users.PATCH("/logic", s.handlePatchBaseLogic)

		users.GET("/export", s.handleExport)
		users.POST("/import", s.handleImport)

		users.GET("/studies", s.handleListStudies)
		users.GET("/studies/:study/logic", s.handleGetStudy)
		users.PUT("/studies/:study/logic", s.handlePutStudy)
		users.GET("/studies/:study/merged", s.handleMerged)
		users.POST("/studies/:study/reports", s.handleGenerate)
	}
}

// corsMiddleware allows the configured origins; an empty list or "*" allows any.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case set[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-User-ID, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
