// Package service orchestrates report generation and configuration
// management on top of the pure prompt pipeline.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
	"github.com/radreport-mcp-server/internal/prompts"
)

// PreparedPrompt is a compiled prompt with the logic it was compiled from.
type PreparedPrompt struct {
	Prompt   string
	Schema   domain.SchemaKind
	Template string
	Logic    *domain.MergedLogic
	Warnings []string
}

// ReportGenerator turns dictated findings into a report: it resolves the
// user's configuration, compiles a prompt, calls the completer and runs the
// advisory validators over the output.
type ReportGenerator struct {
	resolver   *resolver
	completer  domain.Completer
	compiler   *prompts.Compiler
	legacy     *prompts.LegacyBuilder
	sections   *SectionValidator
	compliance *ComplianceValidator
	log        *logrus.Logger
	now        func() time.Time
}

// GeneratorOption configures a ReportGenerator.
type GeneratorOption func(*ReportGenerator)

// WithCompiler replaces the prompt compiler, e.g. to set a site preamble.
func WithCompiler(c *prompts.Compiler) GeneratorOption {
	return func(g *ReportGenerator) {
		g.compiler = c
		g.legacy = prompts.NewLegacyBuilder(c)
	}
}

// WithComposer replaces the composition policy table.
func WithComposer(c *logic.Composer) GeneratorOption {
	return func(g *ReportGenerator) { g.resolver.composer = c }
}

// WithFetchTimeout bounds the configuration fetches of one request.
func WithFetchTimeout(d time.Duration) GeneratorOption {
	return func(g *ReportGenerator) { g.resolver.fetchTimeout = d }
}

// NewReportGenerator creates a report generator
func NewReportGenerator(store domain.LogicStore, completer domain.Completer, logger *logrus.Logger, opts ...GeneratorOption) *ReportGenerator {
	compiler := prompts.NewCompiler()
	g := &ReportGenerator{
		resolver: &resolver{
			store:    store,
			composer: logic.NewComposer(nil),
			log:      logger,
		},
		completer:  completer,
		compiler:   compiler,
		legacy:     prompts.NewLegacyBuilder(compiler),
		sections:   NewSectionValidator(),
		compliance: NewComplianceValidator(),
		log:        logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func validateRequest(session domain.Session, req domain.ReportRequest) error {
	if strings.TrimSpace(session.UserID) == "" {
		return domain.NewReportError(domain.ErrInvalidInput, "session has no user", "", session.RequestID)
	}
	if strings.TrimSpace(req.StudyType) == "" {
		return domain.NewValidationError("study_type", "is required", req.StudyType)
	}
	if strings.TrimSpace(req.Findings) == "" {
		return domain.WrapReportError(domain.ErrValidation, "findings are required", domain.ErrEmptyFindings)
	}
	return nil
}

// Prepare resolves configuration and compiles the prompt without calling
// the completer.
func (g *ReportGenerator) Prepare(ctx context.Context, session domain.Session, req domain.ReportRequest) (*PreparedPrompt, error) {
	if err := validateRequest(session, req); err != nil {
		return nil, err
	}

	res, err := g.resolver.resolve(ctx, session.UserID, req.StudyType)
	if err != nil {
		return nil, err
	}

	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = res.Record.Template
	}

	out := &PreparedPrompt{
		Schema:   res.Schema,
		Template: template,
		Logic:    res.Merged,
		Warnings: res.Warnings,
	}

	if res.Schema == domain.SchemaSplit {
		out.Prompt = g.compiler.Compile(prompts.Input{
			Findings:              req.Findings,
			Template:              template,
			Logic:                 res.Merged,
			GlobalBasePrompt:      res.Global.BasePrompt,
			GlobalFindingsRules:   res.Global.FindingsRules,
			GlobalImpressionRules: res.Global.ImpressionRules,
		})
		return out, nil
	}

	out.Prompt = g.legacy.Build(prompts.LegacyInput{
		Findings:       req.Findings,
		Template:       template,
		Logic:          res.legacyTree(),
		GeneratePrompt: res.Record.GeneratePrompt,
		Global:         res.Global,
	})
	return out, nil
}

// Generate produces a report. Store and completion failures are returned as
// errors; validator findings are attached to the result and never fail it.
func (g *ReportGenerator) Generate(ctx context.Context, session domain.Session, req domain.ReportRequest) (*domain.ReportResult, error) {
	start := g.now()

	prepared, err := g.Prepare(ctx, session, req)
	if err != nil {
		return nil, err
	}

	text, err := g.completer.Complete(ctx, prepared.Prompt)
	if err != nil {
		var re *domain.ReportError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, domain.WrapReportError(domain.ErrCompletion, "report completion failed", err)
	}

	text, violations, warnings := g.sections.Validate(prepared.Template, text)
	violations = append(violations, g.compliance.Check(prepared.Logic, text)...)
	warnings = append(append([]string(nil), prepared.Warnings...), warnings...)
	if violations == nil {
		violations = []domain.Violation{}
	}
	if warnings == nil {
		warnings = []string{}
	}

	result := &domain.ReportResult{
		ID:          uuid.New().String(),
		Text:        text,
		Prompt:      prepared.Prompt,
		Schema:      prepared.Schema,
		Violations:  violations,
		Warnings:    warnings,
		GeneratedAt: g.now().UTC(),
	}

	entry := g.log.WithFields(logrus.Fields{
		"report_id":     result.ID,
		"user_id":       session.UserID,
		"request_id":    session.RequestID,
		"study_type":    req.StudyType,
		"schema":        prepared.Schema,
		"prompt_length": len(prepared.Prompt),
		"violations":    len(violations),
		"duration":      g.now().Sub(start),
	})
	if len(violations) > 0 {
		entry.Warn("Report generated with rule violations")
	} else {
		entry.Info("Report generated")
	}

	return result, nil
}
