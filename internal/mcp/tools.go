package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/merge"
	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/rules"
	"github.com/radreport-mcp-server/internal/service"
)

// CompilePromptArgs are the compile_prompt arguments. Logic is the merged
// logic object; rule fields are free text.
type CompilePromptArgs struct {
	Findings              string         `json:"findings" jsonschema:"dictated findings to incorporate"`
	Template              string         `json:"template,omitempty" jsonschema:"report template whose section headers must be kept"`
	Logic                 map[string]any `json:"logic,omitempty" jsonschema:"merged logic object"`
	GlobalBasePrompt      string         `json:"global_base_prompt,omitempty"`
	GlobalFindingsRules   string         `json:"global_findings_rules,omitempty"`
	GlobalImpressionRules string         `json:"global_impression_rules,omitempty"`
}

// ParseRulesArgs are the parse_rules arguments.
type ParseRulesArgs struct {
	Text    string `json:"text" jsonschema:"rule lines, one per line"`
	Section string `json:"section,omitempty" jsonschema:"findings or impression"`
}

// MergedLogicArgs are the merged_logic arguments.
type MergedLogicArgs struct {
	UserID    string `json:"user_id,omitempty"`
	StudyType string `json:"study_type"`
}

// GenerateReportArgs are the generate_report arguments.
type GenerateReportArgs struct {
	UserID    string `json:"user_id,omitempty"`
	StudyType string `json:"study_type"`
	Findings  string `json:"findings"`
	Template  string `json:"template,omitempty" jsonschema:"overrides the stored study template"`
}

type toolSet struct {
	logic       *service.LogicService
	reports     *service.ReportGenerator
	compiler    *prompts.Compiler
	defaultUser string
	logger      *logrus.Logger
}

func (t *toolSet) names() []string {
	out := []string{ToolCompilePrompt, ToolParseRules}
	if t.logic != nil {
		out = append(out, ToolMergedLogic)
	}
	if t.reports != nil {
		out = append(out, ToolGenerateReport)
	}
	return out
}

func (t *toolSet) user(id string) string {
	if strings.TrimSpace(id) == "" {
		return t.defaultUser
	}
	return id
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

// errorResult reports a failure to the model as tool output rather than a
// protocol error, so it can correct its arguments.
func errorResult(tool string, err error, logger *logrus.Logger) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	logger.WithError(err).WithFields(logrus.Fields{
		"tool": tool,
		"code": code,
	}).Warn("Tool call failed")

	data, _ := json.Marshal(map[string]string{"code": code, "message": err.Error()})
	res := textResult(string(data))
	res.IsError = true
	return res
}

func (t *toolSet) compilePrompt(_ context.Context, _ *mcp.CallToolRequest, args CompilePromptArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Findings) == "" {
		return errorResult(ToolCompilePrompt, domain.ErrEmptyFindings, t.logger), nil, nil
	}

	var merged *domain.MergedLogic
	if len(args.Logic) > 0 {
		merged = &domain.MergedLogic{}
		if err := merge.Decode(args.Logic, merged); err != nil {
			return errorResult(ToolCompilePrompt, domain.NewValidationError("logic", err.Error(), nil), t.logger), nil, nil
		}
	}

	prompt := t.compiler.Compile(prompts.Input{
		Findings:              args.Findings,
		Template:              args.Template,
		Logic:                 merged,
		GlobalBasePrompt:      args.GlobalBasePrompt,
		GlobalFindingsRules:   domain.RuleText(args.GlobalFindingsRules),
		GlobalImpressionRules: domain.RuleText(args.GlobalImpressionRules),
	})
	return textResult(prompt), nil, nil
}

func (t *toolSet) parseRules(_ context.Context, _ *mcp.CallToolRequest, args ParseRulesArgs) (*mcp.CallToolResult, any, error) {
	var p *rules.Parser
	switch strings.ToLower(args.Section) {
	case "", "findings":
		p = rules.ForFindings()
	case "impression":
		p = rules.ForImpression()
	default:
		err := domain.NewValidationError("section", "must be findings or impression", args.Section)
		return errorResult(ToolParseRules, err, t.logger), nil, nil
	}
	res, err := jsonResult(p.ParseText(args.Text))
	return res, nil, err
}

func (t *toolSet) mergedLogic(ctx context.Context, _ *mcp.CallToolRequest, args MergedLogicArgs) (*mcp.CallToolResult, any, error) {
	merged, schema, err := t.logic.Merged(ctx, t.user(args.UserID), args.StudyType)
	if err != nil {
		return errorResult(ToolMergedLogic, err, t.logger), nil, nil
	}
	res, err := jsonResult(map[string]any{"schema": schema, "logic": merged})
	return res, nil, err
}

func (t *toolSet) generateReport(ctx context.Context, _ *mcp.CallToolRequest, args GenerateReportArgs) (*mcp.CallToolResult, any, error) {
	session := domain.Session{UserID: t.user(args.UserID)}
	result, err := t.reports.Generate(ctx, session, domain.ReportRequest{
		StudyType: args.StudyType,
		Findings:  args.Findings,
		Template:  args.Template,
	})
	if err != nil {
		return errorResult(ToolGenerateReport, err, t.logger), nil, nil
	}

	out := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: result.Text}}}
	if len(result.Violations) > 0 || len(result.Warnings) > 0 {
		data, err := json.MarshalIndent(map[string]any{
			"report_id":  result.ID,
			"violations": result.Violations,
			"warnings":   result.Warnings,
		}, "", "  ")
		if err != nil {
			return nil, nil, err
		}
		out.Content = append(out.Content, &mcp.TextContent{Text: string(data)})
	}
	return out, nil, nil
}
