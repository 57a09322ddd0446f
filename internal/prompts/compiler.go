// Package prompts compiles merged report logic into the instruction prompt
// sent to the completion backend.
package prompts

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/rules"
)

// Fixed prompt text.
const (
	DefaultPreamble = "You are an expert radiologist. Generate a professional radiology report from the dictated findings below."

	TemplateHeader   = "TEMPLATE STRUCTURE - You MUST follow this exact template structure:"
	FindingsHeader   = "IMPORTANT: You MUST incorporate ALL of the following findings into the report."
	FindingsStart    = "=== FINDINGS TO INCORPORATE ==="
	FindingsEnd      = "=== END OF FINDINGS ==="
	CriticalHeader   = "CRITICAL RULES:"
	GeneralHeader    = "GENERAL REQUIREMENTS:"
	FindingsRules    = "FINDINGS SECTION RULES:"
	ImpressionRules  = "IMPRESSION SECTION RULES:"
	CustomHeader     = "CUSTOM INSTRUCTIONS:"
	ExclusionsHeader = "Do not mention these findings in the impression:"
	ClosingLine      = "Generate the complete report now, following every rule above."

	globalPrefix = "[Global] "
)

var (
	templateReminders = []string{
		"Preserve all section headers exactly as they appear in the template.",
		`Always include a single space after the colon in each section header (for example, "Findings: ").`,
	}

	criticalRules = []string{
		"- Incorporate ALL of the findings listed above into the report.",
		`- The report may contain only the "Findings" and "Impression" sections.`,
		"- Do NOT add any other sections (Technique, Comparison, Clinical History, or similar).",
	}

	toneDirectives = map[string]string{
		domain.ToneDefinitive: "Use definitive language; state findings directly without unnecessary hedging",
		domain.ToneCautious:   "Use cautious language; qualify uncertain findings with appropriate hedging",
		domain.ToneBalanced:   "Use balanced language; be direct about clear findings and hedge only where uncertainty exists",
	}

	punctuationDirectives = []string{
		"Preserve the punctuation style used in the template",
		"Write findings as complete, natural sentences rather than fragments",
		"Do not add punctuation that is absent from the dictated findings",
		"Keep phrasing consistent with the wording style of the template",
	}

	findingsGuidance = []string{
		"Only describe findings that were provided; never invent or assume findings",
		"Incorporate every provided finding into the report; do not omit any",
	}

	impressionGuidance = []string{
		"Prioritize actionable findings, listing the most clinically significant first",
		"Omit non-actionable incidental findings from the impression",
	}
)

const (
	bulletDirective         = "Use bullet points when listing multiple findings within a section"
	capitalizationDirective = "Avoid unnecessary capitalization; capitalize only sentence starts and proper nouns"
	lesionDirective         = "Expand lesion descriptions to include size, location, margins, and internal characteristics when available"
	leadImpressionTemplate  = "List these high-priority findings first when present: %s"
)

// Input is everything one compilation needs.
type Input struct {
	Findings              string
	Template              string
	Logic                 *domain.MergedLogic
	GlobalBasePrompt      string
	GlobalFindingsRules   domain.RuleInput
	GlobalImpressionRules domain.RuleInput
}

// Compiler renders prompts. It holds no per-call state and is safe for
// concurrent use.
type Compiler struct {
	preamble   string
	findings   *rules.Parser
	impression *rules.Parser
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDefaultPreamble replaces the sentence used when no global base prompt is set.
func WithDefaultPreamble(p string) Option {
	return func(c *Compiler) {
		if strings.TrimSpace(p) != "" {
			c.preamble = p
		}
	}
}

// NewCompiler returns a compiler with the standard preamble and bullet sets.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		preamble:   DefaultPreamble,
		findings:   rules.ForFindings(),
		impression: rules.ForImpression(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCompiler = NewCompiler()

// Compile runs the default compiler.
func Compile(in Input) string {
	return defaultCompiler.Compile(in)
}

// Compile builds the prompt. Output is a pure function of in.
func (c *Compiler) Compile(in Input) string {
	logic := in.Logic
	if logic == nil {
		logic = &domain.MergedLogic{}
	}

	var b strings.Builder
	c.writePreamble(&b, in.GlobalBasePrompt)
	writeTemplate(&b, in.Template)
	writeFindings(&b, in.Findings)
	writeCritical(&b)

	writeBlock(&b, GeneralHeader, GeneralEntries(logic))
	writeBlock(&b, FindingsRules, FindingsEntries(logic, c.findings.Parse(in.GlobalFindingsRules)))
	writeBlock(&b, ImpressionRules, ImpressionEntries(logic, c.impression.Parse(in.GlobalImpressionRules)))
	writeBlock(&b, CustomHeader, CustomInstructionEntries(logic))

	b.WriteString(ClosingLine)
	return b.String()
}

func (c *Compiler) writePreamble(b *strings.Builder, global string) {
	p := global
	if strings.TrimSpace(p) == "" {
		p = c.preamble
	}
	b.WriteString(strings.TrimRight(p, " \t\r\n"))
	b.WriteString("\n\n")
}

func writeTemplate(b *strings.Builder, template string) {
	if strings.TrimSpace(template) == "" {
		return
	}
	b.WriteString(TemplateHeader + "\n")
	b.WriteString(strings.TrimRight(template, " \t\r\n"))
	b.WriteString("\n\n")
	for _, r := range templateReminders {
		b.WriteString(r + "\n")
	}
	b.WriteString("\n")
}

func writeFindings(b *strings.Builder, findings string) {
	b.WriteString(FindingsHeader + "\n")
	b.WriteString(FindingsStart + "\n")
	// Findings go in as dictated; only the trailing line break is dropped so
	// the end sentinel stays on its own line.
	b.WriteString(strings.TrimRight(findings, "\r\n"))
	b.WriteString("\n" + FindingsEnd + "\n\n")
}

func writeCritical(b *strings.Builder) {
	b.WriteString(CriticalHeader + "\n")
	for _, r := range criticalRules {
		b.WriteString(r + "\n")
	}
	b.WriteString("\n")
}

// writeBlock emits a header and its entries, or nothing when there are none.
func writeBlock(b *strings.Builder, header string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString(header + "\n")
	b.WriteString(FormatList(entries))
	b.WriteString("\n")
}

// GeneralEntries renders tone and content restrictions.
func GeneralEntries(l *domain.MergedLogic) []Entry {
	g := l.General
	if g == nil {
		return nil
	}
	var out []Entry
	if g.Tone != nil && g.Tone.Style != "" {
		if d, ok := toneDirectives[g.Tone.Style]; ok {
			out = append(out, Item(d))
		} else {
			out = append(out, Itemf("Maintain a %s tone throughout the report", g.Tone.Style))
		}
	}
	if items := enabledKeys(g.DisallowedItems); len(items) > 0 {
		out = append(out, Itemf("Do NOT include: %s", joinList(items)))
	}
	if s := g.DisallowedSymbols; s != nil && s.Enabled && len(s.Symbols) > 0 {
		out = append(out, Itemf("Do NOT use these symbols: %s", joinList(s.Symbols)))
	}
	return out
}

// enabledKeys returns the humanized keys set to true, sorted.
func enabledKeys(m map[string]bool) []string {
	var keys []string
	for k, on := range m {
		if on {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for i, k := range keys {
		keys[i] = domain.Humanize(k)
	}
	return keys
}

// FindingsEntries renders corrections, formatting, language, routing and
// custom rules for the findings section, in precedence order.
func FindingsEntries(l *domain.MergedLogic, global domain.ParsedRules) []Entry {
	var out []Entry

	base, study := splitCorrections(l)
	for _, r := range base {
		out = append(out, Item(correctionText(r)))
	}
	if global.Corrections != nil {
		for _, r := range global.Corrections.Rules {
			if r.Valid() {
				out = append(out, Item(globalPrefix+correctionText(r)))
			}
		}
	}
	for _, r := range global.CustomRules {
		out = append(out, Item(r))
	}
	for _, r := range study {
		out = append(out, Item(correctionText(r)))
	}

	if rep := l.Report; rep != nil {
		if f := rep.Formatting; f != nil {
			if f.PreserveTemplatePunctuation {
				for _, d := range punctuationDirectives {
					out = append(out, Item(d))
				}
			}
			if f.UseBulletPoints {
				out = append(out, Item(bulletDirective))
			}
			if f.PreventUnnecessaryCapitalization {
				out = append(out, Item(capitalizationDirective))
			}
		}
		if lang := rep.Language; lang != nil {
			if w := lang.AvoidWords; w != nil && w.Enabled && len(w.Words) > 0 {
				out = append(out, Itemf("Avoid these words: %s", joinList(w.Words)))
			}
			if p := lang.AvoidPhrases; p != nil && p.Enabled && len(p.Phrases) > 0 {
				out = append(out, Itemf("Avoid these phrases: %s", joinList(p.Phrases)))
			}
			if lang.ExpandLesionDescriptions {
				out = append(out, Item(lesionDirective))
			}
		}
		for _, r := range rep.AnatomicRoutingRules {
			if r.Condition != "" && r.RouteTo != "" {
				out = append(out, Itemf(`If finding contains "%s", route to "%s" section`, r.Condition, r.RouteTo))
			}
		}
		for _, r := range rep.CustomRules {
			if r != "" {
				out = append(out, Item(r))
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	for _, g := range findingsGuidance {
		out = append(out, Item(g))
	}
	return out
}

func correctionText(r domain.CorrectionRule) string {
	s := fmt.Sprintf(`Replace "%s" with "%s"`, r.Find, r.Replace)
	if r.Description != "" {
		s += " (" + r.Description + ")"
	}
	return s
}

// splitCorrections separates base corrections from study corrections. The
// composer appends study corrections to report.corrections; when they are
// found there as a suffix they are rendered once, after the global rules.
func splitCorrections(l *domain.MergedLogic) (base, study []domain.CorrectionRule) {
	if l.Report != nil && l.Report.Corrections != nil {
		base = validRules(l.Report.Corrections.Rules)
	}
	if l.StudyReport != nil && l.StudyReport.Corrections != nil {
		study = validRules(l.StudyReport.Corrections.Rules)
	}
	if n := len(study); n > 0 && n <= len(base) && reflect.DeepEqual(base[len(base)-n:], study) {
		base = base[:len(base)-n]
	}
	return base, study
}

func validRules(in []domain.CorrectionRule) []domain.CorrectionRule {
	var out []domain.CorrectionRule
	for _, r := range in {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// ImpressionEntries renders impression rules followed by the exclusion list.
func ImpressionEntries(l *domain.MergedLogic, global domain.ParsedRules) []Entry {
	var out []Entry
	imp := l.Impression

	if imp != nil && imp.Format != nil && imp.Format.Style != "" {
		out = append(out, Item(formatDirective(imp.Format)))
	}
	for _, r := range global.CustomRules {
		out = append(out, Item(r))
	}
	if imp != nil {
		if p := imp.RequiredOpeningPhrase; p != nil && p.Enabled && p.Phrase != "" {
			out = append(out, Item(openingDirective(p)))
		}
	}
	if lead := highPriority(l); len(lead) > 0 {
		out = append(out, Itemf(leadImpressionTemplate, joinList(lead)))
	}
	if imp != nil {
		for _, r := range imp.CustomRules {
			if r != "" {
				out = append(out, Item(r))
			}
		}
	}

	var excluded []Entry
	if imp != nil {
		for _, e := range imp.ExcludeByDefault {
			if text := exclusionText(e); text != "" {
				excluded = append(excluded, BulletItem(text))
			}
		}
	}

	if len(out) == 0 && len(excluded) == 0 {
		return nil
	}
	for _, g := range impressionGuidance {
		out = append(out, Item(g))
	}
	if len(excluded) > 0 {
		out = append(out, BlankLine(), PlainLine(ExclusionsHeader))
		out = append(out, excluded...)
		out = append(out, BlankLine())
	}
	return out
}

func formatDirective(f *domain.ImpressionFormat) string {
	var s string
	unit := "items"
	switch f.Style {
	case domain.ImpressionNumbered:
		s = "Format the impression as a numbered list (1., 2., 3.)"
	case domain.ImpressionBullets:
		s = "Format the impression as a bulleted list"
	case domain.ImpressionProse:
		s = "Write the impression as prose without numbers or bullets"
		unit = "paragraphs"
	default:
		s = fmt.Sprintf("Format the impression using the %s style", domain.Humanize(f.Style))
	}
	switch f.Spacing {
	case domain.SpacingSingle:
		s += " with single spacing between " + unit
	case domain.SpacingDouble:
		s += " with a blank line between " + unit
	}
	return s
}

func openingDirective(p *domain.OpeningPhrase) string {
	s := fmt.Sprintf(`Begin the impression with the exact phrase "%s"`, p.Phrase)
	if p.Numbered != nil {
		if *p.Numbered {
			s += " as the first numbered item"
		} else {
			s += " as an unnumbered opening line"
		}
	}
	return s
}

// highPriority unions the base and study high-priority finding lists.
func highPriority(l *domain.MergedLogic) []string {
	var lists [][]string
	if l.Impression != nil && l.Impression.Priority != nil {
		lists = append(lists, l.Impression.Priority.HighPriorityFindings)
	}
	if l.StudyImpression != nil && l.StudyImpression.Priority != nil {
		lists = append(lists, l.StudyImpression.Priority.HighPriorityFindings)
	}
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, f := range list {
			if f != "" && !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// exclusionText renders plain exclusions humanized in lower case and
// conditional ones as "finding UNLESS condition".
func exclusionText(e domain.ConditionalExclusion) string {
	if !e.Conditional {
		return strings.ToLower(domain.Humanize(e.Finding))
	}
	if e.Finding == "" {
		return ""
	}
	if e.Unless == "" {
		return e.Finding
	}
	return e.Finding + " UNLESS " + e.Unless
}

// CustomInstructionEntries numbers the non-empty custom instructions.
func CustomInstructionEntries(l *domain.MergedLogic) []Entry {
	var out []Entry
	for _, s := range l.CustomInstructions {
		if strings.TrimSpace(s) != "" {
			out = append(out, Item(s))
		}
	}
	return out
}
