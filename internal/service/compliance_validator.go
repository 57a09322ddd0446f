package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/radreport-mcp-server/internal/domain"
)

var (
	impressionHeader = regexp.MustCompile(`(?mi)^\s*impression\s*:`)
	nextHeader       = regexp.MustCompile(`(?m)^\s*[A-Z][A-Za-z /&-]{0,40}:`)
	listMarker       = regexp.MustCompile(`^\s*(?:\d+[.)]|[•\-*])\s*`)
)

// ComplianceValidator checks generated text against the resolved logic. All
// findings are advisory.
type ComplianceValidator struct{}

// NewComplianceValidator returns a compliance validator.
func NewComplianceValidator() *ComplianceValidator {
	return &ComplianceValidator{}
}

// Check returns violations in a fixed order: corrections, avoided words,
// avoided phrases, symbols, exclusions, opening phrase.
func (v *ComplianceValidator) Check(l *domain.MergedLogic, text string) []domain.Violation {
	if l == nil {
		return nil
	}
	var out []domain.Violation

	if r := l.Report; r != nil {
		if r.Corrections != nil {
			for _, c := range r.Corrections.Rules {
				if !c.Valid() || strings.EqualFold(c.Find, c.Replace) {
					continue
				}
				if containsTerm(text, c.Find) && !containsTerm(c.Replace, c.Find) {
					out = append(out, domain.Violation{
						Rule:    "correction_not_applied",
						Message: fmt.Sprintf("%q should have been replaced with %q", c.Find, c.Replace),
					})
				}
			}
		}
		if lang := r.Language; lang != nil {
			if lang.AvoidWords != nil && lang.AvoidWords.Enabled {
				for _, w := range lang.AvoidWords.Words {
					if containsTerm(text, w) {
						out = append(out, domain.Violation{Rule: "avoided_word", Message: fmt.Sprintf("Report uses avoided word %q", w)})
					}
				}
			}
			if lang.AvoidPhrases != nil && lang.AvoidPhrases.Enabled {
				for _, p := range lang.AvoidPhrases.Phrases {
					if containsTerm(text, p) {
						out = append(out, domain.Violation{Rule: "avoided_phrase", Message: fmt.Sprintf("Report uses avoided phrase %q", p)})
					}
				}
			}
		}
	}

	if g := l.General; g != nil && g.DisallowedSymbols != nil && g.DisallowedSymbols.Enabled {
		for _, s := range g.DisallowedSymbols.Symbols {
			if s != "" && strings.Contains(text, s) {
				out = append(out, domain.Violation{Rule: "disallowed_symbol", Message: fmt.Sprintf("Report contains disallowed symbol %q", s)})
			}
		}
	}

	impression, ok := ImpressionSection(text)
	if imp := l.Impression; imp != nil && ok {
		for _, e := range imp.ExcludeByDefault {
			if e.Unless != "" {
				continue
			}
			finding := domain.Humanize(e.Finding)
			if containsTerm(impression, finding) {
				out = append(out, domain.Violation{
					Rule:    "excluded_finding",
					Message: fmt.Sprintf("Impression mentions %q, which is excluded by default", finding),
				})
			}
		}
		if p := imp.RequiredOpeningPhrase; p != nil && p.Enabled && strings.TrimSpace(p.Phrase) != "" {
			first := listMarker.ReplaceAllString(firstLine(impression), "")
			if !strings.HasPrefix(strings.ToLower(first), strings.ToLower(strings.TrimSpace(p.Phrase))) {
				out = append(out, domain.Violation{
					Rule:    "opening_phrase_missing",
					Message: fmt.Sprintf("Impression does not open with %q", p.Phrase),
				})
			}
		}
	}

	return out
}

// ImpressionSection returns the body of the Impression section, up to the
// next header or the end of text.
func ImpressionSection(text string) (string, bool) {
	loc := impressionHeader.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	body := text[loc[1]:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if end := nextHeader.FindStringIndex(body[nl:]); end != nil {
			body = body[:nl+end[0]]
		}
	}
	return strings.TrimSpace(body), true
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// containsTerm matches term case-insensitively on word boundaries where the
// term starts or ends with a word character.
func containsTerm(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	pattern := regexp.QuoteMeta(term)
	if isWordChar(term[0]) {
		pattern = `\b` + pattern
	}
	if isWordChar(term[len(term)-1]) {
		pattern += `\b`
	}
	return regexp.MustCompile(`(?i)` + pattern).MatchString(text)
}

func isWordChar(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
