// Package mcp exposes prompt compilation and report generation as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/service"
)

// Tool names.
const (
	ToolCompilePrompt  = "compile_prompt"
	ToolParseRules     = "parse_rules"
	ToolMergedLogic    = "merged_logic"
	ToolGenerateReport = "generate_report"
)

// Info names the server to clients.
type Info struct {
	Name        string
	Version     string
	DefaultUser string
}

// Dependencies are the services behind the tools. Compiler may be nil.
type Dependencies struct {
	Logic    *service.LogicService
	Reports  *service.ReportGenerator
	Compiler *prompts.Compiler
	Logger   *logrus.Logger
}

// Server is the MCP server with the report tools registered.
type Server struct {
	mcpServer *mcp.Server
	tools     *toolSet
	logger    *logrus.Logger
}

// NewServer creates an MCP server and registers every tool.
func NewServer(info Info, deps Dependencies) *Server {
	if info.Name == "" {
		info.Name = "radreport-mcp-server"
	}
	if info.Version == "" {
		info.Version = "v1.0.0"
	}
	if info.DefaultUser == "" {
		info.DefaultUser = "local"
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	compiler := deps.Compiler
	if compiler == nil {
		compiler = prompts.NewCompiler()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: info.Name, Version: info.Version}, nil),
		tools: &toolSet{
			logic:       deps.Logic,
			reports:     deps.Reports,
			compiler:    compiler,
			defaultUser: info.DefaultUser,
			logger:      logger,
		},
		logger: logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCompilePrompt,
		Description: "Compile a report-generation prompt from findings, a template and merged logic",
	}, s.tools.compilePrompt)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolParseRules,
		Description: "Parse free-text rule lines into corrections and custom rules",
	}, s.tools.parseRules)

	if s.tools.logic != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolMergedLogic,
			Description: "Show the merged base and study logic a report would be generated from",
		}, s.tools.mergedLogic)
	}

	if s.tools.reports != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolGenerateReport,
			Description: "Generate a radiology report from dictated findings using the stored study configuration",
		}, s.tools.generateReport)
	}

	s.logger.WithField("tool_count", len(s.tools.names())).Debug("Registered MCP tools")
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.mcpServer
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server stopped: %w", err)
	}
	s.logger.Info("MCP server stopped")
	return nil
}
