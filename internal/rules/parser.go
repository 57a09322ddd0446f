// Package rules turns free-text rule sections into structured rules.
package rules

import (
	"regexp"
	"strings"

	"github.com/radreport-mcp-server/internal/domain"
)

// Bullet glyphs stripped from the start of a rule line. The two sections have
// historically accepted slightly different sets.
var (
	FindingsBullets   = []string{"•", "◦", "▪", "‣", "➤", "→", "-", "*"}
	ImpressionBullets = []string{"•", "○", "■", "►", "✓", "-", "*"}
)

var correctionPattern = regexp.MustCompile(
	`(?i)^replace\s+["'“”]?(.+?)["'“”]?\s+with\s+["'“”]?(.+?)["'“”]?(?:\s*\(([^()]*)\))?\s*\.?$`,
)

// Parser converts one rule section. The zero value strips no bullets.
type Parser struct {
	bullets []string
}

// NewParser returns a parser that strips one leading glyph from bullets.
func NewParser(bullets []string) *Parser {
	return &Parser{bullets: append([]string(nil), bullets...)}
}

// ForFindings returns the parser used for findings-section rule text.
func ForFindings() *Parser { return NewParser(FindingsBullets) }

// ForImpression returns the parser used for impression-section rule text.
func ForImpression() *Parser { return NewParser(ImpressionBullets) }

// Parse classifies input and returns its structured rules. Structured input is
// returned as-is; text is split into lines, each of which becomes either a
// correction or a custom rule. It never fails.
func (p *Parser) Parse(in domain.RuleInput) domain.ParsedRules {
	if s, ok := in.Structured(); ok {
		if s.CustomRules == nil {
			s.CustomRules = []string{}
		}
		return s
	}
	return p.ParseText(in.Text())
}

// ParseText parses a block of rule text.
func (p *Parser) ParseText(text string) domain.ParsedRules {
	out := domain.ParsedRules{CustomRules: []string{}}
	if strings.TrimSpace(text) == "" {
		return out
	}

	var corrections []domain.CorrectionRule
	for _, raw := range strings.Split(text, "\n") {
		line := p.clean(raw)
		if skip(line) {
			continue
		}
		if rule, ok := parseCorrection(line); ok {
			corrections = append(corrections, rule)
			continue
		}
		out.CustomRules = append(out.CustomRules, line)
	}
	if len(corrections) > 0 {
		out.Corrections = &domain.CorrectionSet{Rules: corrections}
	}
	return out
}

func (p *Parser) clean(raw string) string {
	line := strings.TrimSpace(raw)
	for _, b := range p.bullets {
		if strings.HasPrefix(line, b) {
			return strings.TrimSpace(strings.TrimPrefix(line, b))
		}
	}
	return line
}

// skip drops blanks, section headers, and worked examples.
func skip(line string) bool {
	return line == "" || strings.HasSuffix(line, ":") || strings.HasPrefix(line, "Example")
}

func parseCorrection(line string) (domain.CorrectionRule, bool) {
	m := correctionPattern.FindStringSubmatch(line)
	if m == nil {
		return domain.CorrectionRule{}, false
	}
	rule := domain.CorrectionRule{
		Find:        strings.TrimSpace(m[1]),
		Replace:     strings.TrimSpace(m[2]),
		Description: strings.TrimSpace(m[3]),
	}
	return rule, rule.Valid()
}
