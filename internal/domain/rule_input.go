package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParsedRules is the structured form of a rule section.
type ParsedRules struct {
	CustomRules      []string               `json:"custom_rules"`
	Corrections      *CorrectionSet         `json:"corrections,omitempty"`
	ExcludeByDefault []ConditionalExclusion `json:"exclude_by_default,omitempty"`
	Priority         *PriorityLists         `json:"priority,omitempty"`
}

// TextWrapper is the {"text": ...} envelope some clients send rule text in.
type TextWrapper struct {
	Text string `json:"text"`
}

// RuleInputKind discriminates RuleInput.
type RuleInputKind int

const (
	RuleInputEmpty RuleInputKind = iota
	RuleInputText
	RuleInputWrapped
	RuleInputStructured
)

func (k RuleInputKind) String() string {
	switch k {
	case RuleInputText:
		return "text"
	case RuleInputWrapped:
		return "wrapped"
	case RuleInputStructured:
		return "structured"
	default:
		return "empty"
	}
}

// RuleInput is a rule section as supplied by a caller: plain text, a text
// envelope, or already-structured rules.
type RuleInput struct {
	kind       RuleInputKind
	text       string
	structured *ParsedRules
}

// RuleText wraps plain rule text.
func RuleText(s string) RuleInput {
	return RuleInput{kind: RuleInputText, text: s}
}

// WrappedRuleText wraps a {"text": ...} envelope.
func WrappedRuleText(w TextWrapper) RuleInput {
	return RuleInput{kind: RuleInputWrapped, text: w.Text}
}

// StructuredRules wraps rules that need no parsing.
func StructuredRules(p ParsedRules) RuleInput {
	return RuleInput{kind: RuleInputStructured, structured: &p}
}

// Kind returns the variant held.
func (r RuleInput) Kind() RuleInputKind { return r.kind }

// Text returns the raw text for the text and wrapped variants.
func (r RuleInput) Text() string { return r.text }

// Structured returns the rules for the structured variant.
func (r RuleInput) Structured() (ParsedRules, bool) {
	if r.kind != RuleInputStructured || r.structured == nil {
		return ParsedRules{}, false
	}
	return *r.structured, true
}

// MarshalJSON writes the variant in its original shape.
func (r RuleInput) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case RuleInputText:
		return json.Marshal(r.text)
	case RuleInputWrapped:
		return json.Marshal(TextWrapper{Text: r.text})
	case RuleInputStructured:
		return json.Marshal(r.structured)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON classifies the payload: a string is text, an object carrying
// custom_rules or corrections is structured, any other object is read as a
// text envelope.
func (r *RuleInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RuleInput{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RuleText(s)
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("rule input must be a string or an object: %w", err)
	}
	_, hasRules := probe["custom_rules"]
	_, hasCorrections := probe["corrections"]
	if hasRules || hasCorrections {
		var p ParsedRules
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode structured rules: %w", err)
		}
		*r = StructuredRules(p)
		return nil
	}
	var w TextWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode rule text envelope: %w", err)
	}
	*r = WrappedRuleText(w)
	return nil
}
