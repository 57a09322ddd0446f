package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
)

func newTestResolver(st domain.LogicStore) *resolver {
	return &resolver{store: st, composer: logic.NewComposer(nil), fetchTimeout: time.Second, log: testLogger()}
}

func TestResolveFixedKeyRoutingKeepsLayer(t *testing.T) {
	st := newMemStore()
	st.base["u1"] = domain.RawLogic{
		"version": "3.0",
		"report": map[string]any{
			"custom_rules":           []any{"base rule"},
			"anatomic_routing_rules": map[string]any{"bone_marrow": "Bones"},
		},
	}
	st.studies[studyID("u1", "knee")] = &domain.StudyRecord{
		UserID:    "u1",
		StudyType: "knee",
		StudyLogic: domain.RawLogic{
			"version": "1.0",
			"study_report": map[string]any{
				"corrections": map[string]any{"rules": []any{map[string]any{"find": "A", "replace": "B"}}},
				"anatomic_routing_rules": map[string]any{
					"loose_bodies":            "joints",
					"group_pathology_by_type": true,
				},
			},
			"study_impression": map[string]any{"exclude_by_default": []any{"tiny_cyst"}},
		},
	}

	res, err := newTestResolver(st).resolve(context.Background(), "u1", "knee")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	m := res.Merged
	require.NotNil(t, m.Report.Corrections)
	assert.Equal(t, []domain.CorrectionRule{{Find: "A", Replace: "B"}}, m.Report.Corrections.Rules)
	assert.Equal(t, []domain.ConditionalExclusion{domain.Exclude("tiny_cyst")}, m.Impression.ExcludeByDefault)
	assert.Equal(t, []domain.AnatomicRoutingRule{{Condition: "loose bodies", RouteTo: "joints"}}, m.Report.AnatomicRoutingRules)
	assert.Equal(t, []string{"base rule", "Group pathology by type"}, m.Report.CustomRules)

	// stored trees are left as they were
	raw := st.studies[studyID("u1", "knee")].StudyLogic["study_report"].(map[string]any)
	assert.IsType(t, map[string]any{}, raw["anatomic_routing_rules"])
}

func TestResolveFixedKeyRoutingInBase(t *testing.T) {
	st := newMemStore()
	st.base["u1"] = domain.RawLogic{
		"version": "3.0",
		"report": map[string]any{
			"anatomic_routing_rules": map[string]any{"bone_marrow": "Bones"},
		},
	}

	res, err := newTestResolver(st).resolve(context.Background(), "u1", "knee")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []domain.AnatomicRoutingRule{{Condition: "bone marrow", RouteTo: "Bones"}}, res.Merged.Report.AnatomicRoutingRules)
}
