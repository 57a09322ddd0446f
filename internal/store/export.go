package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/radreport-mcp-server/internal/domain"
)

// ExportBundle collects a user's base logic and every study record.
func ExportBundle(ctx context.Context, s domain.LogicStore, userID string) (*domain.LogicBundle, error) {
	base, err := s.GetBaseLogic(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get base logic: %w", err)
	}
	types, err := s.ListStudyTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list study types: %w", err)
	}

	bundle := &domain.LogicBundle{
		UserID:     userID,
		BaseLogic:  base,
		Studies:    make([]*domain.StudyRecord, 0, len(types)),
		ExportedAt: time.Now().UTC(),
	}
	for _, st := range types {
		rec, err := s.GetStudyRecord(ctx, userID, st)
		if err != nil {
			return nil, fmt.Errorf("failed to get study %s: %w", st, err)
		}
		if rec != nil {
			bundle.Studies = append(bundle.Studies, rec)
		}
	}
	return bundle, nil
}

// WriteBundle exports a user's configuration as indented JSON.
func WriteBundle(ctx context.Context, s domain.LogicStore, userID string, w io.Writer) error {
	bundle, err := ExportBundle(ctx, s, userID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(bundle)
}

// ImportBundle restores a bundle read from r. Existing records win: base
// logic is written only when the user has none, and study types already
// present are skipped. userID, when non-empty, replaces the bundle's owner.
func ImportBundle(ctx context.Context, s domain.LogicStore, r io.Reader, userID string) (imported int, skipped int, err error) {
	var bundle domain.LogicBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if userID == "" {
		userID = bundle.UserID
	}
	if userID == "" {
		return 0, 0, fmt.Errorf("bundle has no user_id")
	}

	if bundle.BaseLogic != nil {
		existing, err := s.GetBaseLogic(ctx, userID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to check existing base logic: %w", err)
		}
		if existing == nil {
			if err := s.SaveBaseLogic(ctx, userID, bundle.BaseLogic); err != nil {
				return 0, 0, fmt.Errorf("failed to save base logic: %w", err)
			}
		}
	}

	for _, rec := range bundle.Studies {
		if rec == nil || rec.StudyType == "" {
			continue
		}
		existing, err := s.GetStudyRecord(ctx, userID, rec.StudyType)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		rec.UserID = userID
		if err := s.SaveStudyRecord(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}
