// Package store persists configuration layers for the lite server and wraps
// any store with a record cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/radreport-mcp-server/internal/domain"
)

// SQLiteStore implements domain.LogicStore on an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens dbPath, creating the file and schema when missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS base_logic (
		user_id TEXT PRIMARY KEY,
		logic TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS study_logic (
		user_id TEXT NOT NULL,
		study_type TEXT NOT NULL,
		template TEXT DEFAULT '',
		study_logic TEXT,
		legacy_logic TEXT,
		generate_prompt TEXT DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, study_type)
	);

	CREATE TABLE IF NOT EXISTS global_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		base_prompt TEXT DEFAULT '',
		impression_prompt TEXT DEFAULT '',
		findings_rules TEXT,
		impression_rules TEXT,
		logic TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_study_logic_user ON study_logic(user_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// GetBaseLogic returns nil when the user has no base logic yet.
func (s *SQLiteStore) GetBaseLogic(ctx context.Context, userID string) (domain.RawLogic, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT logic FROM base_logic WHERE user_id = ?", userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query base logic: %w", err)
	}
	return decodeLogic(raw)
}

// SaveBaseLogic replaces the user's base logic.
func (s *SQLiteStore) SaveBaseLogic(ctx context.Context, userID string, logic domain.RawLogic) error {
	raw, err := encodeLogic(logic)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO base_logic (user_id, logic, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			logic = excluded.logic,
			updated_at = excluded.updated_at
	`, userID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save base logic: %w", err)
	}
	return nil
}

// GetStudyRecord returns nil when no record exists for the study type.
func (s *SQLiteStore) GetStudyRecord(ctx context.Context, userID, studyType string) (*domain.StudyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, study_type, template, study_logic, legacy_logic, generate_prompt, updated_at
		FROM study_logic
		WHERE user_id = ? AND study_type = ?
	`, userID, studyType)

	rec := &domain.StudyRecord{}
	var template, prompt, study, legacy sql.NullString
	err := row.Scan(&rec.UserID, &rec.StudyType, &template, &study, &legacy, &prompt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan study record: %w", err)
	}
	rec.Template = template.String
	rec.GeneratePrompt = prompt.String
	if rec.StudyLogic, err = decodeLogic(study); err != nil {
		return nil, err
	}
	if rec.LegacyLogic, err = decodeLogic(legacy); err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveStudyRecord upserts the record keyed by user and study type.
func (s *SQLiteStore) SaveStudyRecord(ctx context.Context, rec *domain.StudyRecord) error {
	if rec == nil || rec.UserID == "" || rec.StudyType == "" {
		return fmt.Errorf("study record requires user_id and study_type")
	}
	study, err := encodeLogic(rec.StudyLogic)
	if err != nil {
		return err
	}
	legacy, err := encodeLogic(rec.LegacyLogic)
	if err != nil {
		return err
	}
	rec.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO study_logic (
			user_id, study_type, template, study_logic, legacy_logic, generate_prompt, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, study_type) DO UPDATE SET
			template = excluded.template,
			study_logic = excluded.study_logic,
			legacy_logic = excluded.legacy_logic,
			generate_prompt = excluded.generate_prompt,
			updated_at = excluded.updated_at
	`, rec.UserID, rec.StudyType, rec.Template, study, legacy, rec.GeneratePrompt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save study record: %w", err)
	}
	return nil
}

// ListStudyTypes returns the user's study types in name order.
func (s *SQLiteStore) ListStudyTypes(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT study_type FROM study_logic WHERE user_id = ? ORDER BY study_type", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetGlobalSettings returns empty settings when none were saved.
func (s *SQLiteStore) GetGlobalSettings(ctx context.Context) (*domain.GlobalSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT base_prompt, impression_prompt, findings_rules, impression_rules, logic, updated_at
		FROM global_settings WHERE id = 1
	`)

	g := &domain.GlobalSettings{}
	var base, impression, findingsRules, impressionRules, logic sql.NullString
	err := row.Scan(&base, &impression, &findingsRules, &impressionRules, &logic, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.GlobalSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan global settings: %w", err)
	}
	g.BasePrompt = base.String
	g.ImpressionPrompt = impression.String
	if err := decodeRules(findingsRules, &g.FindingsRules); err != nil {
		return nil, err
	}
	if err := decodeRules(impressionRules, &g.ImpressionRules); err != nil {
		return nil, err
	}
	if g.Logic, err = decodeLogic(logic); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGlobalSettings replaces the single global row.
func (s *SQLiteStore) SaveGlobalSettings(ctx context.Context, g *domain.GlobalSettings) error {
	if g == nil {
		return fmt.Errorf("global settings are required")
	}
	findings, err := json.Marshal(g.FindingsRules)
	if err != nil {
		return fmt.Errorf("failed to encode findings rules: %w", err)
	}
	impression, err := json.Marshal(g.ImpressionRules)
	if err != nil {
		return fmt.Errorf("failed to encode impression rules: %w", err)
	}
	logic, err := encodeLogic(g.Logic)
	if err != nil {
		return err
	}
	g.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO global_settings (
			id, base_prompt, impression_prompt, findings_rules, impression_rules, logic, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			base_prompt = excluded.base_prompt,
			impression_prompt = excluded.impression_prompt,
			findings_rules = excluded.findings_rules,
			impression_rules = excluded.impression_rules,
			logic = excluded.logic,
			updated_at = excluded.updated_at
	`, g.BasePrompt, g.ImpressionPrompt, string(findings), string(impression), logic, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save global settings: %w", err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeLogic stores nil trees as NULL.
func encodeLogic(logic domain.RawLogic) (sql.NullString, error) {
	if logic == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(logic)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode logic: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeLogic(raw sql.NullString) (domain.RawLogic, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out domain.RawLogic
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, fmt.Errorf("failed to decode logic: %w", err)
	}
	return out, nil
}

func decodeRules(raw sql.NullString, dst *domain.RuleInput) error {
	if !raw.Valid || raw.String == "" {
		*dst = domain.RuleInput{}
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
		return fmt.Errorf("failed to decode rule section: %w", err)
	}
	return nil
}
