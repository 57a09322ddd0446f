package logic

import (
	"fmt"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/merge"
)

// ValidationResult lists every structural problem found, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

var requiredSections = []struct {
	category string
	sections []string
}{
	{"general", []string{"tone", "disallowed_items"}},
	{"report", []string{"formatting", "language"}},
	{"impression", []string{"format"}},
}

// Validate checks that the three categories and their required sub-sections
// are present.
func Validate(l *domain.AgentLogic) ValidationResult {
	if l == nil {
		return ValidateTree(nil)
	}
	tree, err := merge.ToTree(l)
	if err != nil {
		return ValidationResult{Errors: []string{err.Error()}}
	}
	return ValidateTree(tree)
}

// ValidateTree is Validate over persisted, untyped logic.
func ValidateTree(t domain.RawLogic) ValidationResult {
	res := ValidationResult{Errors: []string{}}
	for _, req := range requiredSections {
		raw, ok := t[req.category]
		cat, isObj := raw.(map[string]any)
		if !ok || !isObj {
			res.Errors = append(res.Errors, fmt.Sprintf("missing category %q", req.category))
			continue
		}
		for _, s := range req.sections {
			if _, ok := cat[s]; !ok {
				res.Errors = append(res.Errors, fmt.Sprintf("missing %s.%s", req.category, s))
			}
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}
