package domain

import "time"

// RawLogic is persisted logic in its untyped JSON-object form. Detection and
// deep-merge operate on this shape before it is decoded into typed logic.
type RawLogic = map[string]any

// Session identifies the caller of a generation. It is passed explicitly;
// nothing reads ambient authentication state.
type Session struct {
	UserID    string `json:"user_id"`
	Token     string `json:"-"`
	RequestID string `json:"request_id,omitempty"`
}

// StudyRecord is the per-user, per-study-type row.
type StudyRecord struct {
	UserID         string    `json:"user_id"`
	StudyType      string    `json:"study_type"`
	Template       string    `json:"template,omitempty"`
	StudyLogic     RawLogic  `json:"study_logic,omitempty"`
	LegacyLogic    RawLogic  `json:"legacy_logic,omitempty"`
	GeneratePrompt string    `json:"generate_prompt,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GlobalSettings is the single shared record: global prompts, global rule
// sections, and the global base logic layer.
type GlobalSettings struct {
	BasePrompt       string    `json:"base_prompt,omitempty"`
	ImpressionPrompt string    `json:"impression_prompt,omitempty"`
	FindingsRules    RuleInput `json:"findings_rules"`
	ImpressionRules  RuleInput `json:"impression_rules"`
	Logic            RawLogic  `json:"logic,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LogicBundle is a user's complete configuration, used for export and import.
type LogicBundle struct {
	UserID     string         `json:"user_id"`
	BaseLogic  RawLogic       `json:"base_logic,omitempty"`
	Studies    []*StudyRecord `json:"studies"`
	ExportedAt time.Time      `json:"exported_at"`
}

// SchemaKind tells which prompt path produced a report.
type SchemaKind string

const (
	SchemaSplit  SchemaKind = "split"
	SchemaLegacy SchemaKind = "legacy"
)

// ReportRequest asks for a report for one study.
type ReportRequest struct {
	StudyType string `json:"study_type"`
	Findings  string `json:"findings"`
	// Template overrides the stored study template when set.
	Template string `json:"template,omitempty"`
}

// Violation is an advisory post-generation finding. It never fails a request.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ReportResult is the outcome of one generation.
type ReportResult struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Prompt      string      `json:"prompt"`
	Schema      SchemaKind  `json:"schema"`
	Violations  []Violation `json:"violations"`
	Warnings    []string    `json:"warnings"`
	GeneratedAt time.Time   `json:"generated_at"`
}
