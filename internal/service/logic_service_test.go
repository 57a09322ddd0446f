package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radreport-mcp-server/internal/domain"
)

func newLogicService(st *memStore) *LogicService {
	return NewLogicService(st, testLogger(), 0)
}

func TestGetBaseLogicCreatesDefault(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)
	ctx := context.Background()

	tree, err := svc.GetBaseLogic(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "3.0", tree["version"])
	assert.Contains(t, tree, "general")
	assert.True(t, svc.Validate(tree).Valid)
	assert.Equal(t, tree, st.base["u1"], "default is persisted")

	_, err = svc.GetBaseLogic(ctx, " ")
	assert.Equal(t, domain.ErrValidation, domain.ErrorCode(err))
}

func TestSaveBaseLogicIsAdvisory(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)

	res, err := svc.SaveBaseLogic(context.Background(), "u1", domain.RawLogic{"general": map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
	assert.Contains(t, st.base, "u1")
}

func TestPatchBaseLogicDeepMerges(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)
	ctx := context.Background()

	_, err := svc.GetBaseLogic(ctx, "u1")
	require.NoError(t, err)

	next, res, err := svc.PatchBaseLogic(ctx, "u1", domain.RawLogic{
		"general": map[string]any{"tone": map[string]any{"style": "definitive"}},
	})
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	general := next["general"].(map[string]any)
	assert.Equal(t, "definitive", general["tone"].(map[string]any)["style"])
	assert.Contains(t, general, "disallowed_items", "siblings survive the patch")
	assert.Equal(t, next, st.base["u1"])
}

func TestStudyRecordLifecycle(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)
	ctx := context.Background()

	rec, err := svc.GetStudyRecord(ctx, "u1", "mri_knee")
	require.NoError(t, err)
	assert.Equal(t, "1.0", rec.StudyLogic["version"])

	template := "Findings:\nImpression:"
	rec, err = svc.SaveStudyRecord(ctx, "u1", "mri_knee", StudyUpdate{Template: &template})
	require.NoError(t, err)
	assert.Equal(t, template, rec.Template)
	assert.Equal(t, "1.0", rec.StudyLogic["version"], "logic untouched by a template update")

	rec, err = svc.SaveStudyRecord(ctx, "u1", "mri_knee", StudyUpdate{
		StudyLogic: domain.RawLogic{"version": "1.0", "custom_instructions": []any{"Mention laterality"}},
	})
	require.NoError(t, err)
	assert.Equal(t, template, rec.Template)

	types, err := svc.ListStudyTypes(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"mri_knee"}, types)

	types, err = svc.ListStudyTypes(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, types)
	assert.Empty(t, types)

	_, err = svc.GetStudyRecord(ctx, "u1", "")
	assert.Equal(t, domain.ErrValidation, domain.ErrorCode(err))
}

func TestMergedPreview(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)
	ctx := context.Background()

	st.base["u1"] = domain.RawLogic{"version": "3.0", "custom_instructions": []any{"base"}}
	st.studies[studyID("u1", "ct")] = &domain.StudyRecord{
		UserID:     "u1",
		StudyType:  "ct",
		StudyLogic: domain.RawLogic{"version": "1.0", "custom_instructions": []any{"study"}},
	}

	merged, schema, err := svc.Merged(ctx, "u1", "ct")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaSplit, schema)
	assert.Equal(t, []string{"base", "study"}, merged.CustomInstructions)

	st.failWith = errors.New("down")
	_, _, err = svc.Merged(ctx, "u1", "ct")
	assert.Equal(t, domain.ErrStore, domain.ErrorCode(err))
}

func TestGlobalSettings(t *testing.T) {
	st := newMemStore()
	svc := newLogicService(st)
	ctx := context.Background()

	assert.Equal(t, domain.ErrValidation, domain.ErrorCode(svc.SaveGlobalSettings(ctx, nil)))

	require.NoError(t, svc.SaveGlobalSettings(ctx, &domain.GlobalSettings{BasePrompt: "Global."}))
	g, err := svc.GetGlobalSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Global.", g.BasePrompt)
}

func TestMigrateLegacyThroughService(t *testing.T) {
	got := newLogicService(newMemStore()).MigrateLegacy(domain.RawLogic{"version": "2.0", "tone": "cautious"})
	assert.Equal(t, domain.ToneCautious, got.General.Tone.Style)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newMemStore()
	svc := newLogicService(src)
	ctx := context.Background()

	_, err := svc.GetBaseLogic(ctx, "u1")
	require.NoError(t, err)
	template := "Findings:"
	_, err = svc.SaveStudyRecord(ctx, "u1", "mri_knee", StudyUpdate{Template: &template})
	require.NoError(t, err)
	_, err = svc.GetStudyRecord(ctx, "u1", "ct_head")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, "u1", &buf))

	dst := newMemStore()
	dst.studies[studyID("u2", "ct_head")] = &domain.StudyRecord{UserID: "u2", StudyType: "ct_head"}
	imported, skipped, err := newLogicService(dst).Import(ctx, "u2", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "Findings:", dst.studies[studyID("u2", "mri_knee")].Template)
	assert.Equal(t, src.base["u1"]["version"], dst.base["u2"]["version"])

	_, _, err = newLogicService(dst).Import(ctx, "u2", bytes.NewBufferString("{"))
	assert.Equal(t, domain.ErrStore, domain.ErrorCode(err))
}
