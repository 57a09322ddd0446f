package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
)

// LogicRepository implements domain.LogicStore on PostgreSQL.
type LogicRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewLogicRepository creates a new logic repository
func NewLogicRepository(db *pgxpool.Pool, logger *logrus.Logger) *LogicRepository {
	return &LogicRepository{
		db:  db,
		log: logger,
	}
}

// jsonArg marshals v for a JSONB column; nil trees become NULL.
func jsonArg(v domain.RawLogic) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling logic: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeTree(raw []byte) (domain.RawLogic, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out domain.RawLogic
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling logic: %w", err)
	}
	return out, nil
}

// GetBaseLogic returns nil when the user has no base logic.
func (r *LogicRepository) GetBaseLogic(ctx context.Context, userID string) (domain.RawLogic, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT logic FROM base_logic WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to get base logic")
		return nil, fmt.Errorf("getting base logic: %w", err)
	}
	return decodeTree(raw)
}

// SaveBaseLogic upserts the user's base logic.
func (r *LogicRepository) SaveBaseLogic(ctx context.Context, userID string, logic domain.RawLogic) error {
	if logic == nil {
		logic = domain.RawLogic{}
	}
	arg, err := jsonArg(logic)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO base_logic (user_id, logic, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			logic = EXCLUDED.logic,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, userID, arg); err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to save base logic")
		return fmt.Errorf("saving base logic: %w", err)
	}

	r.log.WithField("user_id", userID).Debug("Base logic saved")
	return nil
}

// GetStudyRecord returns nil when the study type has no record.
func (r *LogicRepository) GetStudyRecord(ctx context.Context, userID, studyType string) (*domain.StudyRecord, error) {
	query := `
		SELECT user_id, study_type, template, study_logic, legacy_logic, generate_prompt, updated_at
		FROM study_logic
		WHERE user_id = $1 AND study_type = $2`

	rec := &domain.StudyRecord{}
	var study, legacy []byte
	err := r.db.QueryRow(ctx, query, userID, studyType).Scan(
		&rec.UserID,
		&rec.StudyType,
		&rec.Template,
		&study,
		&legacy,
		&rec.GeneratePrompt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"study_type": studyType,
			"error":      err,
		}).Error("Failed to get study record")
		return nil, fmt.Errorf("getting study record: %w", err)
	}

	if rec.StudyLogic, err = decodeTree(study); err != nil {
		return nil, err
	}
	if rec.LegacyLogic, err = decodeTree(legacy); err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveStudyRecord upserts a study record and stamps UpdatedAt.
func (r *LogicRepository) SaveStudyRecord(ctx context.Context, rec *domain.StudyRecord) error {
	if rec == nil || rec.UserID == "" || rec.StudyType == "" {
		return fmt.Errorf("study record requires user_id and study_type")
	}
	study, err := jsonArg(rec.StudyLogic)
	if err != nil {
		return err
	}
	legacy, err := jsonArg(rec.LegacyLogic)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO study_logic (
			user_id, study_type, template, study_logic, legacy_logic, generate_prompt, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, study_type) DO UPDATE SET
			template = EXCLUDED.template,
			study_logic = EXCLUDED.study_logic,
			legacy_logic = EXCLUDED.legacy_logic,
			generate_prompt = EXCLUDED.generate_prompt,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		rec.UserID,
		rec.StudyType,
		rec.Template,
		study,
		legacy,
		rec.GeneratePrompt,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id":    rec.UserID,
			"study_type": rec.StudyType,
			"error":      err,
		}).Error("Failed to save study record")
		return fmt.Errorf("saving study record: %w", err)
	}
	return nil
}

// ListStudyTypes returns the user's study types in name order.
func (r *LogicRepository) ListStudyTypes(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT study_type FROM study_logic WHERE user_id = $1 ORDER BY study_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing study types: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning study types: %w", err)
	}
	return types, nil
}

// GetGlobalSettings returns empty settings when the row does not exist.
func (r *LogicRepository) GetGlobalSettings(ctx context.Context) (*domain.GlobalSettings, error) {
	query := `
		SELECT base_prompt, impression_prompt, findings_rules, impression_rules, logic, updated_at
		FROM global_settings WHERE id = 1`

	g := &domain.GlobalSettings{}
	var findings, impression, logic []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&g.BasePrompt,
		&g.ImpressionPrompt,
		&findings,
		&impression,
		&logic,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.GlobalSettings{}, nil
		}
		r.log.WithError(err).Error("Failed to get global settings")
		return nil, fmt.Errorf("getting global settings: %w", err)
	}

	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &g.FindingsRules); err != nil {
			return nil, fmt.Errorf("unmarshaling findings rules: %w", err)
		}
	}
	if len(impression) > 0 {
		if err := json.Unmarshal(impression, &g.ImpressionRules); err != nil {
			return nil, fmt.Errorf("unmarshaling impression rules: %w", err)
		}
	}
	if g.Logic, err = decodeTree(logic); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGlobalSettings replaces the single global row.
func (r *LogicRepository) SaveGlobalSettings(ctx context.Context, g *domain.GlobalSettings) error {
	if g == nil {
		return fmt.Errorf("global settings are required")
	}
	findings, err := json.Marshal(g.FindingsRules)
	if err != nil {
		return fmt.Errorf("marshaling findings rules: %w", err)
	}
	impression, err := json.Marshal(g.ImpressionRules)
	if err != nil {
		return fmt.Errorf("marshaling impression rules: %w", err)
	}
	logic, err := jsonArg(g.Logic)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO global_settings (
			id, base_prompt, impression_prompt, findings_rules, impression_rules, logic, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			base_prompt = EXCLUDED.base_prompt,
			impression_prompt = EXCLUDED.impression_prompt,
			findings_rules = EXCLUDED.findings_rules,
			impression_rules = EXCLUDED.impression_rules,
			logic = EXCLUDED.logic,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		g.BasePrompt,
		g.ImpressionPrompt,
		string(findings),
		string(impression),
		logic,
	).Scan(&g.UpdatedAt)
	if err != nil {
		r.log.WithError(err).Error("Failed to save global settings")
		return fmt.Errorf("saving global settings: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (r *LogicRepository) Close() error {
	return nil
}

var _ domain.LogicStore = (*LogicRepository)(nil)

