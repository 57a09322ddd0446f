package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/rules"
	"github.com/radreport-mcp-server/internal/service"
)

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	body := gin.H{"version": Version, "timestamp": time.Now().UTC()}
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			body["error"] = err.Error()
		}
	}
	body["status"] = status
	c.JSON(code, body)
}

// CompileRequest is the body of POST /prompts/compile.
type CompileRequest struct {
	Findings              string              `json:"findings" binding:"required"`
	Template              string              `json:"template"`
	Logic                 *domain.MergedLogic `json:"logic"`
	GlobalBasePrompt      string              `json:"global_base_prompt"`
	GlobalFindingsRules   domain.RuleInput    `json:"global_findings_rules"`
	GlobalImpressionRules domain.RuleInput    `json:"global_impression_rules"`
}

func (s *Server) handleCompile(c *gin.Context) {
	var req CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prompt := s.compiler.Compile(prompts.Input{
		Findings:              req.Findings,
		Template:              req.Template,
		Logic:                 req.Logic,
		GlobalBasePrompt:      req.GlobalBasePrompt,
		GlobalFindingsRules:   req.GlobalFindingsRules,
		GlobalImpressionRules: req.GlobalImpressionRules,
	})
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// ParseRulesRequest is the body of POST /rules/parse. Section selects the
// bullet glyph set: "findings" (default) or "impression".
type ParseRulesRequest struct {
	Section string           `json:"section"`
	Rules   domain.RuleInput `json:"rules"`
}

func (s *Server) handleParseRules(c *gin.Context) {
	var req ParseRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var p *rules.Parser
	switch strings.ToLower(req.Section) {
	case "", "findings":
		p = rules.ForFindings()
	case "impression":
		p = rules.ForImpression()
	default:
		respondError(c, domain.NewValidationError("section", "must be findings or impression", req.Section))
		return
	}
	c.JSON(http.StatusOK, p.Parse(req.Rules))
}

func (s *Server) handleGetGlobal(c *gin.Context) {
	g, err := s.logic.GetGlobalSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handlePutGlobal(c *gin.Context) {
	var g domain.GlobalSettings
	if err := c.ShouldBindJSON(&g); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.logic.SaveGlobalSettings(c.Request.Context(), &g); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, &g)
}

func (s *Server) handleGetBaseLogic(c *gin.Context) {
	tree, err := s.logic.GetBaseLogic(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user"), "logic": tree})
}

func (s *Server) handlePutBaseLogic(c *gin.Context) {
	var tree domain.RawLogic
	if err := c.ShouldBindJSON(&tree); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.logic.SaveBaseLogic(c.Request.Context(), c.Param("user"), tree)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user"), "logic": tree, "validation": result})
}

func (s *Server) handlePatchBaseLogic(c *gin.Context) {
	var patch domain.RawLogic
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	tree, result, err := s.logic.PatchBaseLogic(c.Request.Context(), c.Param("user"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("user"), "logic": tree, "validation": result})
}

func (s *Server) handleExport(c *gin.Context) {
	user := c.Param("user")
	var buf bytes.Buffer
	if err := s.logic.Export(c.Request.Context(), user, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+user+`-logic.json"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (s *Server) handleImport(c *gin.Context) {
	imported, skipped, err := s.logic.Import(c.Request.Context(), c.Param("user"), c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

func (s *Server) handleListStudies(c *gin.Context) {
	types, err := s.logic.ListStudyTypes(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"study_types": types})
}

func (s *Server) handleGetStudy(c *gin.Context) {
	rec, err := s.logic.GetStudyRecord(c.Request.Context(), c.Param("user"), c.Param("study"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handlePutStudy(c *gin.Context) {
	var update service.StudyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := s.logic.SaveStudyRecord(c.Request.Context(), c.Param("user"), c.Param("study"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleMerged(c *gin.Context) {
	merged, schema, err := s.logic.Merged(c.Request.Context(), c.Param("user"), c.Param("study"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schema": schema, "logic": merged})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req domain.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.StudyType = c.Param("study")

	result, err := s.reports.Generate(c.Request.Context(), currentSession(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
