package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/radreport-mcp-server/internal/domain"
)

var headerLine = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 /&(),'-]{0,60}):(?:\s|$)`)

// TemplateHeaders returns the section headers of template in order, without
// the trailing colon. Duplicates keep their first position.
func TemplateHeaders(template string) []string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(template, "\n") {
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		h := strings.TrimSpace(m[1])
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

// SectionValidator checks generated text against the template's headers.
type SectionValidator struct{}

// NewSectionValidator returns a section validator.
func NewSectionValidator() *SectionValidator {
	return &SectionValidator{}
}

// Validate repairs headers written without a space after the colon, then
// reports headers that are missing or out of template order. It returns the
// repaired text.
func (v *SectionValidator) Validate(template, text string) (string, []domain.Violation, []string) {
	headers := TemplateHeaders(template)
	if len(headers) == 0 {
		return text, nil, nil
	}

	var (
		violations []domain.Violation
		warnings   []string
	)

	for _, h := range headers {
		squashed := regexp.MustCompile(`(?mi)^(\s*)(` + regexp.QuoteMeta(h) + `):([^\s])`)
		if squashed.MatchString(text) {
			text = squashed.ReplaceAllString(text, "$1$2: $3")
			warnings = append(warnings, fmt.Sprintf("Inserted missing space after %q", h+":"))
		}
	}

	last, lastHeader := -1, ""
	for _, h := range headers {
		at := regexp.MustCompile(`(?mi)^\s*` + regexp.QuoteMeta(h) + `:`).FindStringIndex(text)
		if at == nil {
			violations = append(violations, domain.Violation{
				Rule:    "section_missing",
				Message: fmt.Sprintf("Section %q from the template is missing", h),
			})
			continue
		}
		if at[0] < last {
			violations = append(violations, domain.Violation{
				Rule:    "section_order",
				Message: fmt.Sprintf("Section %q appears before %q", h, lastHeader),
			})
			continue
		}
		last, lastHeader = at[0], h
	}

	return text, violations, warnings
}
