package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema versions carried in the version field of persisted logic.
const (
	AgentLogicVersion  = "3.0"
	StudyLogicVersion  = "1.0"
	LegacyLogicVersion = "2.0"
)

// CorrectionRule replaces a literal phrase wherever it appears in generated text.
type CorrectionRule struct {
	Find        string `json:"find"`
	Replace     string `json:"replace"`
	Description string `json:"description,omitempty"`
}

// Valid reports whether both sides of the rule are set.
func (r CorrectionRule) Valid() bool {
	return r.Find != "" && r.Replace != ""
}

// CorrectionSet wraps the ordered correction list the way it is persisted.
type CorrectionSet struct {
	Rules []CorrectionRule `json:"rules,omitempty"`
}

// AnatomicRoutingRule sends a finding that mentions Condition to the RouteTo section.
type AnatomicRoutingRule struct {
	Condition   string `json:"condition"`
	RouteTo     string `json:"route_to"`
	Description string `json:"description,omitempty"`
}

// ConditionalExclusion is a finding that must stay out of the impression.
// It is persisted either as a bare string or as {"finding": ..., "unless": ...}.
type ConditionalExclusion struct {
	Finding string
	Unless  string
	// Conditional is true when the value was (or should be) written in object form.
	Conditional bool
}

// Exclude builds a plain exclusion.
func Exclude(finding string) ConditionalExclusion {
	return ConditionalExclusion{Finding: finding}
}

// ExcludeUnless builds an exclusion lifted by a condition.
func ExcludeUnless(finding, unless string) ConditionalExclusion {
	return ConditionalExclusion{Finding: finding, Unless: unless, Conditional: true}
}

type exclusionObject struct {
	Finding string `json:"finding"`
	Unless  string `json:"unless,omitempty"`
}

// MarshalJSON writes the string form for plain exclusions.
func (e ConditionalExclusion) MarshalJSON() ([]byte, error) {
	if !e.Conditional {
		return json.Marshal(e.Finding)
	}
	return json.Marshal(exclusionObject{Finding: e.Finding, Unless: e.Unless})
}

// UnmarshalJSON accepts both persisted forms.
func (e *ConditionalExclusion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Exclude(s)
		return nil
	}
	var obj exclusionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("exclusion must be a string or an object with a finding: %w", err)
	}
	*e = ExcludeUnless(obj.Finding, obj.Unless)
	return nil
}

// PriorityLists ranks findings and keywords for impression ordering.
type PriorityLists struct {
	HighPriorityFindings []string `json:"high_priority_findings,omitempty"`
	HighPriorityKeywords []string `json:"high_priority_keywords,omitempty"`
	MidPriorityFindings  []string `json:"mid_priority_findings,omitempty"`
	MidPriorityKeywords  []string `json:"mid_priority_keywords,omitempty"`
	LowPriorityFindings  []string `json:"low_priority_findings,omitempty"`
	LowPriorityKeywords  []string `json:"low_priority_keywords,omitempty"`
}

// ToneSettings selects the register of the report.
type ToneSettings struct {
	Style string `json:"style,omitempty"`
}

// Tone styles with canned directives.
const (
	ToneDefinitive = "definitive"
	ToneCautious   = "cautious"
	ToneBalanced   = "balanced"
)

// SymbolRule forbids specific characters in output.
type SymbolRule struct {
	Enabled bool     `json:"enabled"`
	Symbols []string `json:"symbols,omitempty"`
}

// SectionAllowlist names the only sections a report may carry.
type SectionAllowlist struct {
	Enabled  bool     `json:"enabled"`
	Sections []string `json:"sections,omitempty"`
}

// GeneralCategory holds tone and content restrictions that apply to the whole report.
type GeneralCategory struct {
	Tone              *ToneSettings     `json:"tone,omitempty"`
	DisallowedItems   map[string]bool   `json:"disallowed_items,omitempty"`
	DisallowedSymbols *SymbolRule       `json:"disallowed_symbols,omitempty"`
	AllowedSections   *SectionAllowlist `json:"allowed_sections,omitempty"`
	Corrections       *CorrectionSet    `json:"corrections,omitempty"`
}

// ReportFormatting toggles findings-section formatting directives.
type ReportFormatting struct {
	UseBulletPoints                  bool `json:"use_bullet_points"`
	PreserveTemplatePunctuation      bool `json:"preserve_template_punctuation"`
	PreventUnnecessaryCapitalization bool `json:"prevent_unnecessary_capitalization"`
}

// WordList is an enable-gated list of words to avoid.
type WordList struct {
	Enabled bool     `json:"enabled"`
	Words   []string `json:"words,omitempty"`
}

// PhraseList is an enable-gated list of phrases to avoid.
type PhraseList struct {
	Enabled bool     `json:"enabled"`
	Phrases []string `json:"phrases,omitempty"`
}

// ReportLanguage controls vocabulary in the findings section.
type ReportLanguage struct {
	AvoidWords               *WordList   `json:"avoid_words,omitempty"`
	AvoidPhrases             *PhraseList `json:"avoid_phrases,omitempty"`
	ExpandLesionDescriptions bool        `json:"expand_lesion_descriptions"`
}

// ReportCategory holds findings-section rules.
type ReportCategory struct {
	Formatting           *ReportFormatting     `json:"formatting,omitempty"`
	Language             *ReportLanguage       `json:"language,omitempty"`
	Corrections          *CorrectionSet        `json:"corrections,omitempty"`
	AnatomicRoutingRules []AnatomicRoutingRule `json:"anatomic_routing_rules,omitempty"`
	CustomRules          []string              `json:"custom_rules,omitempty"`
}

// Impression list styles.
const (
	ImpressionNumbered = "numerically_itemized"
	ImpressionBullets  = "bullet_points"
	ImpressionProse    = "none"
)

// Impression item spacing.
const (
	SpacingSingle = "single"
	SpacingDouble = "double"
)

// ImpressionFormat selects list style and spacing for the impression.
type ImpressionFormat struct {
	Style   string `json:"style,omitempty"`
	Spacing string `json:"spacing,omitempty"`
}

// OpeningPhrase forces the impression to begin with fixed text.
type OpeningPhrase struct {
	Enabled  bool   `json:"enabled"`
	Phrase   string `json:"phrase,omitempty"`
	Numbered *bool  `json:"numbered,omitempty"`
}

// ImpressionCategory holds impression-section rules.
type ImpressionCategory struct {
	Format                *ImpressionFormat      `json:"format,omitempty"`
	RequiredOpeningPhrase *OpeningPhrase         `json:"required_opening_phrase,omitempty"`
	ExcludeByDefault      []ConditionalExclusion `json:"exclude_by_default,omitempty"`
	Priority              *PriorityLists         `json:"priority,omitempty"`
	GroupingStrategy      string                 `json:"grouping_strategy,omitempty"`
	AutoReordering        *bool                  `json:"auto_reordering,omitempty"`
	CustomRules           []string               `json:"custom_rules,omitempty"`
}

// AgentLogic is the v3 base layer: a user default, or the shared global instance.
type AgentLogic struct {
	Version            string              `json:"version,omitempty"`
	General            *GeneralCategory    `json:"general,omitempty"`
	Report             *ReportCategory     `json:"report,omitempty"`
	Impression         *ImpressionCategory `json:"impression,omitempty"`
	CustomInstructions []string            `json:"custom_instructions,omitempty"`
}

// StudyReport is the study-specific findings layer.
type StudyReport struct {
	Corrections          *CorrectionSet        `json:"corrections,omitempty"`
	AnatomicRoutingRules []AnatomicRoutingRule `json:"anatomic_routing_rules,omitempty"`
	CustomRules          []string              `json:"custom_rules,omitempty"`
}

// StudyImpression is the study-specific impression layer.
type StudyImpression struct {
	RequiredOpeningPhrase *OpeningPhrase         `json:"required_opening_phrase,omitempty"`
	Priority              *PriorityLists         `json:"priority,omitempty"`
	ExcludeByDefault      []ConditionalExclusion `json:"exclude_by_default,omitempty"`
	GroupingStrategy      string                 `json:"grouping_strategy,omitempty"`
	AutoReordering        *bool                  `json:"auto_reordering,omitempty"`
	CustomRules           []string               `json:"custom_rules,omitempty"`
}

// StudySpecificLogic is the v1 per-study layer.
type StudySpecificLogic struct {
	Version            string           `json:"version,omitempty"`
	StudyReport        *StudyReport     `json:"study_report,omitempty"`
	StudyImpression    *StudyImpression `json:"study_impression,omitempty"`
	CustomInstructions []string         `json:"custom_instructions,omitempty"`
}

// IsZero reports whether the layer carries nothing.
func (s *StudySpecificLogic) IsZero() bool {
	return s == nil || (s.StudyReport == nil && s.StudyImpression == nil && len(s.CustomInstructions) == 0)
}

// MergedLogic is the composed result handed to the compiler.
type MergedLogic struct {
	Version            string              `json:"version,omitempty"`
	General            *GeneralCategory    `json:"general,omitempty"`
	Report             *ReportCategory     `json:"report,omitempty"`
	Impression         *ImpressionCategory `json:"impression,omitempty"`
	StudyReport        *StudyReport        `json:"study_report,omitempty"`
	StudyImpression    *StudyImpression    `json:"study_impression,omitempty"`
	CustomInstructions []string            `json:"custom_instructions,omitempty"`
}

// Clone deep-copies v through its JSON form. Values in this package are plain
// data, so the round trip is lossless.
func Clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("domain: clone %T: %v", v, err))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("domain: clone %T: %v", v, err))
	}
	return out
}

// Humanize turns a persisted key such as "patient_name" into "patient name".
func Humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
