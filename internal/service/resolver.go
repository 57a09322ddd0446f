package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
)

// resolution is every configuration layer that applies to one user and
// study type, plus the composed result.
type resolution struct {
	Base     domain.RawLogic
	Record   *domain.StudyRecord
	Global   *domain.GlobalSettings
	Legacy   domain.RawLogic
	Schema   domain.SchemaKind
	Merged   *domain.MergedLogic
	Warnings []string
}

// resolver fetches layers sequentially and composes them.
type resolver struct {
	store        domain.LogicStore
	composer     *logic.Composer
	fetchTimeout time.Duration
	log          *logrus.Logger
}

func (r *resolver) fetch(ctx context.Context, userID, studyType string) (*resolution, error) {
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	base, err := r.store.GetBaseLogic(ctx, userID)
	if err != nil {
		return nil, domain.WrapReportError(domain.ErrStore, "failed to load base logic", err)
	}
	rec, err := r.store.GetStudyRecord(ctx, userID, studyType)
	if err != nil {
		return nil, domain.WrapReportError(domain.ErrStore, "failed to load study logic", err)
	}
	global, err := r.store.GetGlobalSettings(ctx)
	if err != nil {
		return nil, domain.WrapReportError(domain.ErrStore, "failed to load global settings", err)
	}
	if global == nil {
		global = &domain.GlobalSettings{}
	}
	if rec == nil {
		rec = &domain.StudyRecord{UserID: userID, StudyType: studyType}
	}
	return &resolution{Base: base, Record: rec, Global: global}, nil
}

// resolve loads and composes the layers. Stored logic that cannot be decoded
// is dropped with a warning rather than failing the request.
func (r *resolver) resolve(ctx context.Context, userID, studyType string) (*resolution, error) {
	res, err := r.fetch(ctx, userID, studyType)
	if err != nil {
		return nil, err
	}
	rec := res.Record

	res.Legacy = rec.LegacyLogic
	if len(res.Base) == 0 && len(rec.StudyLogic) == 0 && len(res.Legacy) == 0 && rec.GeneratePrompt != "" {
		res.Legacy = domain.RawLogic{"generate_prompt": rec.GeneratePrompt}
	}

	res.Schema = logic.DetectSchema(res.Base, rec.StudyLogic)
	if res.Schema == domain.SchemaLegacy {
		res.Merged = r.composer.Compose(logic.MigrateLegacy(res.legacyTree()), nil, nil)
		return res, nil
	}

	base, err := logic.EffectiveBase(res.Global.Logic, res.Base)
	if err != nil {
		res.warn(r.log, "Ignoring malformed base logic", err)
		base = nil
	}
	study, err := logic.DecodeStudy(rec.StudyLogic)
	if err != nil {
		res.warn(r.log, "Ignoring malformed study logic", err)
		study = nil
	}
	legacy, err := logic.DecodeMerged(res.Legacy)
	if err != nil {
		res.warn(r.log, "Ignoring malformed legacy logic", err)
		legacy = nil
	}
	res.Merged = r.composer.Compose(base, study, legacy)
	return res, nil
}

// legacyTree picks the unsplit logic object for the legacy prompt path.
func (res *resolution) legacyTree() domain.RawLogic {
	switch {
	case len(res.Legacy) > 0:
		return res.Legacy
	case len(res.Base) > 0:
		return res.Base
	default:
		return res.Record.StudyLogic
	}
}

func (res *resolution) warn(log *logrus.Logger, msg string, err error) {
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", msg, err))
	log.WithError(err).WithFields(logrus.Fields{
		"user_id":    res.Record.UserID,
		"study_type": res.Record.StudyType,
	}).Warn(msg)
}
