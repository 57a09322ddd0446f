package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
	"github.com/radreport-mcp-server/internal/merge"
	"github.com/radreport-mcp-server/internal/store"
)

// LogicService manages the persisted configuration layers.
type LogicService struct {
	store    domain.LogicStore
	resolver *resolver
	log      *logrus.Logger
}

// NewLogicService creates a logic service over store.
func NewLogicService(s domain.LogicStore, logger *logrus.Logger, fetchTimeout time.Duration) *LogicService {
	return &LogicService{
		store: s,
		resolver: &resolver{
			store:        s,
			composer:     logic.NewComposer(nil),
			fetchTimeout: fetchTimeout,
			log:          logger,
		},
		log: logger,
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "is required", userID)
	}
	return nil
}

func storeErr(msg string, err error) error {
	return domain.WrapReportError(domain.ErrStore, msg, err)
}

// GetBaseLogic returns the user's base logic, creating the default on
// first access.
func (s *LogicService) GetBaseLogic(ctx context.Context, userID string) (domain.RawLogic, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	tree, err := s.store.GetBaseLogic(ctx, userID)
	if err != nil {
		return nil, storeErr("failed to load base logic", err)
	}
	if tree != nil {
		return tree, nil
	}

	tree, err = merge.ToTree(logic.DefaultAgentLogic())
	if err != nil {
		return nil, domain.WrapReportError(domain.ErrInternalServer, "failed to build default logic", err)
	}
	if err := s.store.SaveBaseLogic(ctx, userID, tree); err != nil {
		return nil, storeErr("failed to save default base logic", err)
	}
	s.log.WithField("user_id", userID).Info("Created default base logic")
	return tree, nil
}

// SaveBaseLogic stores tree as-is and returns its validation result.
// Validation is advisory; an invalid tree is still saved.
func (s *LogicService) SaveBaseLogic(ctx context.Context, userID string, tree domain.RawLogic) (logic.ValidationResult, error) {
	if err := requireUser(userID); err != nil {
		return logic.ValidationResult{}, err
	}
	result := logic.ValidateTree(tree)
	if err := s.store.SaveBaseLogic(ctx, userID, tree); err != nil {
		return result, storeErr("failed to save base logic", err)
	}
	if !result.Valid {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"errors":  result.Errors,
		}).Warn("Saved base logic that fails validation")
	}
	return result, nil
}

// PatchBaseLogic deep-merges patch over the current base logic.
func (s *LogicService) PatchBaseLogic(ctx context.Context, userID string, patch domain.RawLogic) (domain.RawLogic, logic.ValidationResult, error) {
	current, err := s.GetBaseLogic(ctx, userID)
	if err != nil {
		return nil, logic.ValidationResult{}, err
	}
	next := merge.Merge(current, patch)
	result, err := s.SaveBaseLogic(ctx, userID, next)
	if err != nil {
		return nil, result, err
	}
	return next, result, nil
}

// GetStudyRecord returns the study record, creating one with default study
// logic on first access.
func (s *LogicService) GetStudyRecord(ctx context.Context, userID, studyType string) (*domain.StudyRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(studyType) == "" {
		return nil, domain.NewValidationError("study_type", "is required", studyType)
	}
	rec, err := s.store.GetStudyRecord(ctx, userID, studyType)
	if err != nil {
		return nil, storeErr("failed to load study logic", err)
	}
	if rec != nil {
		return rec, nil
	}

	tree, err := merge.ToTree(logic.DefaultStudyLogic())
	if err != nil {
		return nil, domain.WrapReportError(domain.ErrInternalServer, "failed to build default study logic", err)
	}
	rec = &domain.StudyRecord{UserID: userID, StudyType: studyType, StudyLogic: tree}
	if err := s.store.SaveStudyRecord(ctx, rec); err != nil {
		return nil, storeErr("failed to save default study logic", err)
	}
	return rec, nil
}

// StudyUpdate replaces parts of a study record. Nil fields are left alone.
type StudyUpdate struct {
	StudyLogic     domain.RawLogic `json:"study_logic,omitempty"`
	Template       *string         `json:"template,omitempty"`
	GeneratePrompt *string         `json:"generate_prompt,omitempty"`
}

// SaveStudyRecord applies update to the stored record.
func (s *LogicService) SaveStudyRecord(ctx context.Context, userID, studyType string, update StudyUpdate) (*domain.StudyRecord, error) {
	rec, err := s.GetStudyRecord(ctx, userID, studyType)
	if err != nil {
		return nil, err
	}
	if update.StudyLogic != nil {
		rec.StudyLogic = update.StudyLogic
	}
	if update.Template != nil {
		rec.Template = *update.Template
	}
	if update.GeneratePrompt != nil {
		rec.GeneratePrompt = *update.GeneratePrompt
	}
	if err := s.store.SaveStudyRecord(ctx, rec); err != nil {
		return nil, storeErr("failed to save study logic", err)
	}
	return rec, nil
}

// ListStudyTypes lists the user's configured study types.
func (s *LogicService) ListStudyTypes(ctx context.Context, userID string) ([]string, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	types, err := s.store.ListStudyTypes(ctx, userID)
	if err != nil {
		return nil, storeErr("failed to list study types", err)
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

// Merged previews the logic a report for studyType would be compiled from.
func (s *LogicService) Merged(ctx context.Context, userID, studyType string) (*domain.MergedLogic, domain.SchemaKind, error) {
	if err := requireUser(userID); err != nil {
		return nil, "", err
	}
	res, err := s.resolver.resolve(ctx, userID, studyType)
	if err != nil {
		return nil, "", err
	}
	return res.Merged, res.Schema, nil
}

// GetGlobalSettings returns the shared settings.
func (s *LogicService) GetGlobalSettings(ctx context.Context) (*domain.GlobalSettings, error) {
	g, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return nil, storeErr("failed to load global settings", err)
	}
	return g, nil
}

// SaveGlobalSettings replaces the shared settings.
func (s *LogicService) SaveGlobalSettings(ctx context.Context, g *domain.GlobalSettings) error {
	if g == nil {
		return domain.NewValidationError("global", "is required", nil)
	}
	if g.Logic != nil {
		if res := logic.ValidateTree(g.Logic); !res.Valid {
			s.log.WithField("errors", res.Errors).Debug("Global logic is partial")
		}
	}
	if err := s.store.SaveGlobalSettings(ctx, g); err != nil {
		return storeErr("failed to save global settings", err)
	}
	return nil
}

// Validate checks a logic tree for the required sections.
func (s *LogicService) Validate(tree domain.RawLogic) logic.ValidationResult {
	return logic.ValidateTree(tree)
}

// MigrateLegacy converts unsplit logic into v3 base logic.
func (s *LogicService) MigrateLegacy(tree domain.RawLogic) *domain.AgentLogic {
	return logic.MigrateLegacy(tree)
}

// Export writes the user's configuration bundle to w.
func (s *LogicService) Export(ctx context.Context, userID string, w io.Writer) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := store.WriteBundle(ctx, s.store, userID, w); err != nil {
		return storeErr("failed to export logic", err)
	}
	return nil
}

// Import restores a bundle for userID, keeping records that already exist.
func (s *LogicService) Import(ctx context.Context, userID string, r io.Reader) (imported, skipped int, err error) {
	if err := requireUser(userID); err != nil {
		return 0, 0, err
	}
	imported, skipped, err = store.ImportBundle(ctx, s.store, r, userID)
	if err != nil {
		return imported, skipped, storeErr(fmt.Sprintf("failed to import logic after %d records", imported), err)
	}
	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"imported": imported,
		"skipped":  skipped,
	}).Info("Imported logic bundle")
	return imported, skipped, nil
}
