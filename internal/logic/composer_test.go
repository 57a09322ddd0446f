package logic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radreport-mcp-server/internal/domain"
)

func TestComposeConcatenatesCorrections(t *testing.T) {
	base := &domain.AgentLogic{
		Report: &domain.ReportCategory{
			Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{{Find: "A", Replace: "B"}}},
		},
	}
	study := &domain.StudySpecificLogic{
		StudyReport: &domain.StudyReport{
			Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{{Find: "C", Replace: "D"}}},
		},
	}

	got := Compose(base, study, nil)

	want := []domain.CorrectionRule{{Find: "A", Replace: "B"}, {Find: "C", Replace: "D"}}
	if diff := cmp.Diff(want, got.Report.Corrections.Rules); diff != "" {
		t.Errorf("corrections mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeOverridesRoutingRules(t *testing.T) {
	base := &domain.AgentLogic{
		Report: &domain.ReportCategory{
			AnatomicRoutingRules: []domain.AnatomicRoutingRule{{Condition: "X", RouteTo: "Y"}},
		},
	}
	study := &domain.StudySpecificLogic{
		StudyReport: &domain.StudyReport{
			AnatomicRoutingRules: []domain.AnatomicRoutingRule{{Condition: "P", RouteTo: "Q"}},
		},
	}

	got := Compose(base, study, nil)

	want := []domain.AnatomicRoutingRule{{Condition: "P", RouteTo: "Q"}}
	if diff := cmp.Diff(want, got.Report.AnatomicRoutingRules); diff != "" {
		t.Errorf("routing mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeKeepsBaseRoutingWhenStudyEmpty(t *testing.T) {
	base := &domain.AgentLogic{
		Report: &domain.ReportCategory{
			AnatomicRoutingRules: []domain.AnatomicRoutingRule{{Condition: "X", RouteTo: "Y"}},
		},
	}
	got := Compose(base, &domain.StudySpecificLogic{StudyReport: &domain.StudyReport{}}, nil)
	assert.Equal(t, []domain.AnatomicRoutingRule{{Condition: "X", RouteTo: "Y"}}, got.Report.AnatomicRoutingRules)
}

func TestComposeImpressionFields(t *testing.T) {
	base := DefaultAgentLogic()
	base.Impression.ExcludeByDefault = []domain.ConditionalExclusion{domain.Exclude("small cyst")}
	base.Impression.CustomRules = []string{"base rule"}

	study := &domain.StudySpecificLogic{
		StudyImpression: &domain.StudyImpression{
			RequiredOpeningPhrase: &domain.OpeningPhrase{Enabled: true, Phrase: "No acute findings."},
			ExcludeByDefault:      []domain.ConditionalExclusion{domain.ExcludeUnless("effusion", "large")},
			GroupingStrategy:      "anatomic",
			AutoReordering:        boolPtr(false),
			CustomRules:           []string{"study rule"},
		},
	}

	got := Compose(base, study, nil)

	assert.Equal(t, "No acute findings.", got.Impression.RequiredOpeningPhrase.Phrase)
	assert.Equal(t, []domain.ConditionalExclusion{
		domain.Exclude("small cyst"),
		domain.ExcludeUnless("effusion", "large"),
	}, got.Impression.ExcludeByDefault)
	assert.Equal(t, "anatomic", got.Impression.GroupingStrategy)
	require.NotNil(t, got.Impression.AutoReordering)
	assert.False(t, *got.Impression.AutoReordering)
	assert.Equal(t, []string{"base rule", "study rule"}, got.Impression.CustomRules)
	assert.Equal(t, domain.ImpressionNumbered, got.Impression.Format.Style)
}

func TestComposeCustomInstructionsDropEmpty(t *testing.T) {
	base := &domain.AgentLogic{CustomInstructions: []string{"a", ""}}
	study := &domain.StudySpecificLogic{CustomInstructions: []string{"", "b"}}

	got := Compose(base, study, nil)
	assert.Equal(t, []string{"a", "b"}, got.CustomInstructions)
}

func TestComposePreservesStudyLayers(t *testing.T) {
	study := &domain.StudySpecificLogic{
		StudyReport:     &domain.StudyReport{CustomRules: []string{"r"}},
		StudyImpression: &domain.StudyImpression{CustomRules: []string{"i"}},
	}
	got := Compose(nil, study, nil)

	if diff := cmp.Diff(study.StudyReport, got.StudyReport); diff != "" {
		t.Errorf("study_report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(study.StudyImpression, got.StudyImpression); diff != "" {
		t.Errorf("study_impression mismatch (-want +got):\n%s", diff)
	}
	assert.NotSame(t, study.StudyReport, got.StudyReport)
}

func TestComposeLegacyFallback(t *testing.T) {
	legacy := &domain.MergedLogic{CustomInstructions: []string{"legacy"}}

	got := Compose(nil, nil, legacy)
	assert.Equal(t, []string{"legacy"}, got.CustomInstructions)
	assert.NotSame(t, legacy, got)

	got = Compose(&domain.AgentLogic{}, &domain.StudySpecificLogic{}, nil)
	assert.Equal(t, &domain.MergedLogic{}, got)
}

func TestComposeDoesNotMutateInputs(t *testing.T) {
	base := DefaultAgentLogic()
	base.Report.CustomRules = []string{"keep"}
	before := domain.Clone(base)

	study := &domain.StudySpecificLogic{StudyReport: &domain.StudyReport{CustomRules: []string{"add"}}}
	_ = Compose(base, study, nil)

	if diff := cmp.Diff(before, base); diff != "" {
		t.Errorf("base mutated (-before +after):\n%s", diff)
	}
}

func TestComposerPolicyTableDrivesBehaviour(t *testing.T) {
	c := NewComposer(map[string]Policy{
		FieldCorrections:       Override,
		FieldReportCustomRules: ConcatenateDedup,
	})
	base := &domain.AgentLogic{Report: &domain.ReportCategory{
		Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{{Find: "A", Replace: "B"}}},
		CustomRules: []string{"x", "y"},
	}}
	study := &domain.StudySpecificLogic{StudyReport: &domain.StudyReport{
		Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{{Find: "C", Replace: "D"}}},
		CustomRules: []string{"y", "z"},
	}}

	got := c.Compose(base, study, nil)

	assert.Equal(t, []domain.CorrectionRule{{Find: "C", Replace: "D"}}, got.Report.Corrections.Rules)
	assert.Equal(t, []string{"x", "y", "z"}, got.Report.CustomRules)
	assert.Equal(t, Override, c.Policies()[FieldRoutingRules])
	assert.Equal(t, Concatenate, DefaultPolicies()[FieldCorrections])
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "override", Override.String())
	assert.Equal(t, "concatenate", Concatenate.String())
	assert.Equal(t, "concatenate_dedup", ConcatenateDedup.String())
}
