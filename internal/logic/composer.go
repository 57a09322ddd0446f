package logic

import (
	"reflect"

	"github.com/radreport-mcp-server/internal/domain"
)

// Policy says how a study-layer value combines with the base value.
type Policy int

const (
	// Override replaces the base value when the study value is non-empty.
	Override Policy = iota
	// Concatenate appends study entries after base entries.
	Concatenate
	// ConcatenateDedup appends study entries not already present.
	ConcatenateDedup
)

func (p Policy) String() string {
	switch p {
	case Override:
		return "override"
	case Concatenate:
		return "concatenate"
	case ConcatenateDedup:
		return "concatenate_dedup"
	}
	return "unknown"
}

// Fields governed by the composition policy table.
const (
	FieldCorrections           = "report.corrections.rules"
	FieldRoutingRules          = "report.anatomic_routing_rules"
	FieldReportCustomRules     = "report.custom_rules"
	FieldOpeningPhrase         = "impression.required_opening_phrase"
	FieldExcludeByDefault      = "impression.exclude_by_default"
	FieldGroupingStrategy      = "impression.grouping_strategy"
	FieldAutoReordering        = "impression.auto_reordering"
	FieldImpressionCustomRules = "impression.custom_rules"
	FieldCustomInstructions    = "custom_instructions"
)

// DefaultPolicies is the composition table applied by Compose.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		FieldCorrections:           Concatenate,
		FieldRoutingRules:          Override,
		FieldReportCustomRules:     Concatenate,
		FieldOpeningPhrase:         Override,
		FieldExcludeByDefault:      Concatenate,
		FieldGroupingStrategy:      Override,
		FieldAutoReordering:        Override,
		FieldImpressionCustomRules: Concatenate,
		FieldCustomInstructions:    Concatenate,
	}
}

// Composer layers study logic over base logic according to a policy table.
type Composer struct {
	policies map[string]Policy
}

// NewComposer copies policies over the defaults; nil keeps the defaults.
func NewComposer(policies map[string]Policy) *Composer {
	table := DefaultPolicies()
	for k, v := range policies {
		table[k] = v
	}
	return &Composer{policies: table}
}

// Policies returns a copy of the active table.
func (c *Composer) Policies() map[string]Policy {
	out := make(map[string]Policy, len(c.policies))
	for k, v := range c.policies {
		out[k] = v
	}
	return out
}

var defaultComposer = NewComposer(nil)

// Compose runs the default composer.
func Compose(base *domain.AgentLogic, study *domain.StudySpecificLogic, legacy *domain.MergedLogic) *domain.MergedLogic {
	return defaultComposer.Compose(base, study, legacy)
}

// Compose produces merged logic. When both base and study are empty the
// legacy logic is returned as the merged result, or an empty value when there
// is none. Inputs are never modified.
func (c *Composer) Compose(base *domain.AgentLogic, study *domain.StudySpecificLogic, legacy *domain.MergedLogic) *domain.MergedLogic {
	if isEmptyBase(base) && study.IsZero() {
		if legacy != nil {
			return domain.Clone(legacy)
		}
		return &domain.MergedLogic{}
	}

	out := &domain.MergedLogic{}
	if base != nil {
		b := domain.Clone(base)
		out.Version = b.Version
		out.General = b.General
		out.Report = b.Report
		out.Impression = b.Impression
		out.CustomInstructions = b.CustomInstructions
	}
	if study == nil {
		study = &domain.StudySpecificLogic{}
	}
	for _, b := range bindings {
		b.apply(out, study, c.policies[b.field])
	}
	out.StudyReport = domain.Clone(study.StudyReport)
	out.StudyImpression = domain.Clone(study.StudyImpression)
	return out
}

func isEmptyBase(b *domain.AgentLogic) bool {
	return b == nil || (b.General == nil && b.Report == nil && b.Impression == nil && len(b.CustomInstructions) == 0)
}

type binding struct {
	field string
	apply func(m *domain.MergedLogic, s *domain.StudySpecificLogic, p Policy)
}

// listBinding combines a list field. keep, when set, filters the combined list.
func listBinding[T any](
	field string,
	dst func(*domain.MergedLogic) *[]T,
	src func(*domain.StudySpecificLogic) []T,
	keep func(T) bool,
) binding {
	return binding{field: field, apply: func(m *domain.MergedLogic, s *domain.StudySpecificLogic, p Policy) {
		add := src(s)
		if len(add) == 0 && keep == nil {
			return
		}
		d := dst(m)
		combined := *d
		switch {
		case len(add) == 0:
		case p == Override:
			combined = append([]T(nil), add...)
		case p == ConcatenateDedup:
			combined = append([]T(nil), combined...)
			for _, v := range add {
				if !containsValue(combined, v) {
					combined = append(combined, v)
				}
			}
		default:
			combined = append(append([]T(nil), combined...), add...)
		}
		if keep != nil {
			filtered := combined[:0:0]
			for _, v := range combined {
				if keep(v) {
					filtered = append(filtered, v)
				}
			}
			combined = filtered
		}
		*d = combined
	}}
}

// valueBinding overrides a single value when the study supplies one. Both
// concatenation policies degrade to override for non-list fields.
func valueBinding[T any](
	field string,
	dst func(*domain.MergedLogic) *T,
	src func(*domain.StudySpecificLogic) (T, bool),
) binding {
	return binding{field: field, apply: func(m *domain.MergedLogic, s *domain.StudySpecificLogic, _ Policy) {
		if v, ok := src(s); ok {
			*dst(m) = v
		}
	}}
}

func containsValue[T any](list []T, v T) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func reportOf(m *domain.MergedLogic) *domain.ReportCategory {
	if m.Report == nil {
		m.Report = &domain.ReportCategory{}
	}
	return m.Report
}

func impressionOf(m *domain.MergedLogic) *domain.ImpressionCategory {
	if m.Impression == nil {
		m.Impression = &domain.ImpressionCategory{}
	}
	return m.Impression
}

func studyReport(s *domain.StudySpecificLogic) *domain.StudyReport {
	if s.StudyReport == nil {
		return &domain.StudyReport{}
	}
	return s.StudyReport
}

func studyImpression(s *domain.StudySpecificLogic) *domain.StudyImpression {
	if s.StudyImpression == nil {
		return &domain.StudyImpression{}
	}
	return s.StudyImpression
}

var bindings = []binding{
	listBinding(FieldCorrections,
		func(m *domain.MergedLogic) *[]domain.CorrectionRule {
			r := reportOf(m)
			if r.Corrections == nil {
				r.Corrections = &domain.CorrectionSet{}
			}
			return &r.Corrections.Rules
		},
		func(s *domain.StudySpecificLogic) []domain.CorrectionRule {
			if c := studyReport(s).Corrections; c != nil {
				return c.Rules
			}
			return nil
		}, nil),
	listBinding(FieldRoutingRules,
		func(m *domain.MergedLogic) *[]domain.AnatomicRoutingRule { return &reportOf(m).AnatomicRoutingRules },
		func(s *domain.StudySpecificLogic) []domain.AnatomicRoutingRule { return studyReport(s).AnatomicRoutingRules },
		nil),
	listBinding(FieldReportCustomRules,
		func(m *domain.MergedLogic) *[]string { return &reportOf(m).CustomRules },
		func(s *domain.StudySpecificLogic) []string { return studyReport(s).CustomRules },
		nil),
	valueBinding(FieldOpeningPhrase,
		func(m *domain.MergedLogic) **domain.OpeningPhrase { return &impressionOf(m).RequiredOpeningPhrase },
		func(s *domain.StudySpecificLogic) (*domain.OpeningPhrase, bool) {
			p := studyImpression(s).RequiredOpeningPhrase
			return domain.Clone(p), p != nil
		}),
	listBinding(FieldExcludeByDefault,
		func(m *domain.MergedLogic) *[]domain.ConditionalExclusion { return &impressionOf(m).ExcludeByDefault },
		func(s *domain.StudySpecificLogic) []domain.ConditionalExclusion { return studyImpression(s).ExcludeByDefault },
		nil),
	valueBinding(FieldGroupingStrategy,
		func(m *domain.MergedLogic) *string { return &impressionOf(m).GroupingStrategy },
		func(s *domain.StudySpecificLogic) (string, bool) {
			g := studyImpression(s).GroupingStrategy
			return g, g != ""
		}),
	valueBinding(FieldAutoReordering,
		func(m *domain.MergedLogic) **bool { return &impressionOf(m).AutoReordering },
		func(s *domain.StudySpecificLogic) (*bool, bool) {
			a := studyImpression(s).AutoReordering
			if a == nil {
				return nil, false
			}
			v := *a
			return &v, true
		}),
	listBinding(FieldImpressionCustomRules,
		func(m *domain.MergedLogic) *[]string { return &impressionOf(m).CustomRules },
		func(s *domain.StudySpecificLogic) []string { return studyImpression(s).CustomRules },
		nil),
	listBinding(FieldCustomInstructions,
		func(m *domain.MergedLogic) *[]string { return &m.CustomInstructions },
		func(s *domain.StudySpecificLogic) []string { return s.CustomInstructions },
		func(s string) bool { return s != "" }),
}
