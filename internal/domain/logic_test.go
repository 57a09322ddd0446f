package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionalExclusionJSON(t *testing.T) {
	var got []ConditionalExclusion
	require.NoError(t, json.Unmarshal([]byte(`["Mild_degenerative_changes", {"finding": "small effusion", "unless": "symptomatic"}]`), &got))

	assert.Equal(t, []ConditionalExclusion{
		Exclude("Mild_degenerative_changes"),
		ExcludeUnless("small effusion", "symptomatic"),
	}, got)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `["Mild_degenerative_changes", {"finding": "small effusion", "unless": "symptomatic"}]`, string(out))
}

func TestConditionalExclusionRejectsNumbers(t *testing.T) {
	var e ConditionalExclusion
	assert.Error(t, json.Unmarshal([]byte(`42`), &e))
}

func TestRuleInputUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind RuleInputKind
		wantText string
	}{
		{"null", `null`, RuleInputEmpty, ""},
		{"string", `"Replace \"a\" with \"b\""`, RuleInputText, `Replace "a" with "b"`},
		{"wrapper", `{"text": "Keep it brief"}`, RuleInputWrapped, "Keep it brief"},
		{"structured by rules", `{"custom_rules": ["x"]}`, RuleInputStructured, ""},
		{"structured by corrections", `{"corrections": {"rules": []}}`, RuleInputStructured, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in RuleInput
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &in))
			assert.Equal(t, tt.wantKind, in.Kind())
			assert.Equal(t, tt.wantText, in.Text())
		})
	}
}

func TestRuleInputMarshalKeepsShape(t *testing.T) {
	in := StructuredRules(ParsedRules{CustomRules: []string{"a"}})
	out, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"custom_rules": ["a"]}`, string(out))

	out, err = json.Marshal(WrappedRuleText(TextWrapper{Text: "t"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": "t"}`, string(out))
}

func TestCloneIsDeep(t *testing.T) {
	orig := &AgentLogic{
		Report: &ReportCategory{CustomRules: []string{"one"}},
	}
	cp := Clone(orig)
	cp.Report.CustomRules[0] = "changed"

	assert.Equal(t, "one", orig.Report.CustomRules[0])
	assert.Nil(t, Clone[AgentLogic](nil))
}

func TestStudySpecificLogicIsZero(t *testing.T) {
	var nilLogic *StudySpecificLogic
	assert.True(t, nilLogic.IsZero())
	assert.True(t, (&StudySpecificLogic{Version: StudyLogicVersion}).IsZero())
	assert.False(t, (&StudySpecificLogic{CustomInstructions: []string{"x"}}).IsZero())
}
