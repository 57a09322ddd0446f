package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radreport-mcp-server/internal/domain"
)

func rulesOf(vs []domain.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestComplianceValidatorFlagsEachRule(t *testing.T) {
	l := &domain.MergedLogic{
		General: &domain.GeneralCategory{
			DisallowedSymbols: &domain.SymbolRule{Enabled: true, Symbols: []string{"#"}},
		},
		Report: &domain.ReportCategory{
			Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{
				{Find: "chondral labral", Replace: "chondrolabral"},
				{Find: "ACL", Replace: "anterior cruciate ligament"},
			}},
			Language: &domain.ReportLanguage{
				AvoidWords:   &domain.WordList{Enabled: true, Words: []string{"normal"}},
				AvoidPhrases: &domain.PhraseList{Enabled: true, Phrases: []string{"no evidence of"}},
			},
		},
		Impression: &domain.ImpressionCategory{
			ExcludeByDefault: []domain.ConditionalExclusion{
				domain.Exclude("mild_degenerative_changes"),
				domain.ExcludeUnless("small effusion", "symptomatic"),
			},
			RequiredOpeningPhrase: &domain.OpeningPhrase{Enabled: true, Phrase: "No acute findings."},
		},
	}
	text := "Findings: Chondral labral fraying. Normal menisci. No evidence of tear. #1\n" +
		"Impression:\n1. Mild degenerative changes.\n2. Small effusion."

	got := NewComplianceValidator().Check(l, text)

	assert.Equal(t, []string{
		"correction_not_applied",
		"avoided_word",
		"avoided_phrase",
		"disallowed_symbol",
		"excluded_finding",
		"opening_phrase_missing",
	}, rulesOf(got))
}

func TestComplianceValidatorCleanReport(t *testing.T) {
	l := &domain.MergedLogic{
		Report: &domain.ReportCategory{
			Corrections: &domain.CorrectionSet{Rules: []domain.CorrectionRule{{Find: "chondral labral", Replace: "chondrolabral"}}},
			Language:    &domain.ReportLanguage{AvoidWords: &domain.WordList{Enabled: false, Words: []string{"normal"}}},
		},
		Impression: &domain.ImpressionCategory{
			ExcludeByDefault:      []domain.ConditionalExclusion{domain.Exclude("tiny cyst")},
			RequiredOpeningPhrase: &domain.OpeningPhrase{Enabled: true, Phrase: "No acute findings."},
		},
	}
	text := "Findings: Chondrolabral junction intact. Normal menisci. A tiny cyst.\n" +
		"Impression:\n1. No acute findings.\nRecommendation: tiny cyst follow-up."

	assert.Empty(t, NewComplianceValidator().Check(l, text))
}

func TestComplianceValidatorWordBoundaries(t *testing.T) {
	l := &domain.MergedLogic{Report: &domain.ReportCategory{
		Language: &domain.ReportLanguage{AvoidWords: &domain.WordList{Enabled: true, Words: []string{"normal"}}},
	}}
	assert.Empty(t, NewComplianceValidator().Check(l, "Findings: Abnormal signal."))
	assert.Nil(t, NewComplianceValidator().Check(nil, "anything"))
}

func TestImpressionSection(t *testing.T) {
	body, ok := ImpressionSection("Findings: x\nIMPRESSION: 1. A\n2. B\nRecommendation: C")
	assert.True(t, ok)
	assert.Equal(t, "1. A\n2. B", body)

	_, ok = ImpressionSection("Findings: x")
	assert.False(t, ok)
}
