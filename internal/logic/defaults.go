// Package logic holds the configuration lifecycle: defaults, validation,
// legacy migration, schema detection, and layer composition.
package logic

import "github.com/radreport-mcp-server/internal/domain"

func boolPtr(b bool) *bool { return &b }

// DefaultAgentLogic returns a fresh v3 base layer.
func DefaultAgentLogic() *domain.AgentLogic {
	return &domain.AgentLogic{
		Version: domain.AgentLogicVersion,
		General: &domain.GeneralCategory{
			Tone: &domain.ToneSettings{Style: domain.ToneBalanced},
			DisallowedItems: map[string]bool{
				"patient_identifiers": true,
				"patient_name":        true,
				"report_title":        true,
				"radiologist_name":    true,
			},
			DisallowedSymbols: &domain.SymbolRule{Enabled: false, Symbols: []string{"*", "#"}},
			AllowedSections: &domain.SectionAllowlist{
				Enabled:  true,
				Sections: []string{"Findings", "Impression"},
			},
		},
		Report: &domain.ReportCategory{
			Formatting: &domain.ReportFormatting{
				UseBulletPoints:                  false,
				PreserveTemplatePunctuation:      true,
				PreventUnnecessaryCapitalization: true,
			},
			Language: &domain.ReportLanguage{
				AvoidWords:               &domain.WordList{Enabled: false},
				AvoidPhrases:             &domain.PhraseList{Enabled: false},
				ExpandLesionDescriptions: false,
			},
			Corrections: &domain.CorrectionSet{},
		},
		Impression: &domain.ImpressionCategory{
			Format: &domain.ImpressionFormat{
				Style:   domain.ImpressionNumbered,
				Spacing: domain.SpacingSingle,
			},
			RequiredOpeningPhrase: &domain.OpeningPhrase{Enabled: false},
			Priority:              &domain.PriorityLists{},
			GroupingStrategy:      "severity",
			AutoReordering:        boolPtr(true),
		},
	}
}

// DefaultStudyLogic returns a fresh, empty v1 study layer.
func DefaultStudyLogic() *domain.StudySpecificLogic {
	return &domain.StudySpecificLogic{
		Version: domain.StudyLogicVersion,
		StudyReport: &domain.StudyReport{
			Corrections: &domain.CorrectionSet{},
		},
		StudyImpression: &domain.StudyImpression{},
	}
}

// DefaultLegacyLogic returns the unsplit v2 shape still found on older study
// records. It is only produced for migration tests and lazy initialisation of
// legacy rows.
func DefaultLegacyLogic() domain.RawLogic {
	return domain.RawLogic{
		"version": domain.LegacyLogicVersion,
		"formatting": domain.RawLogic{
			"use_bullet_points":             false,
			"preserve_template_punctuation": true,
		},
		"impression": domain.RawLogic{
			"numbered": true,
		},
		"exclude_by_default":  []any{},
		"custom_instructions": []any{},
	}
}
