package store

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/cache"
	"github.com/radreport-mcp-server/internal/domain"
)

// CachedStore serves reads from a cache and invalidates on every save.
// Cache failures are logged and fall through to the underlying store.
type CachedStore struct {
	next  domain.LogicStore
	cache cache.Cache
	log   *logrus.Logger
}

// NewCachedStore decorates next with c.
func NewCachedStore(next domain.LogicStore, c cache.Cache, logger *logrus.Logger) *CachedStore {
	return &CachedStore{next: next, cache: c, log: logger}
}

func baseKey(userID string) string             { return cache.Key("base", userID) }
func studyKey(userID, studyType string) string { return cache.Key("study", userID, studyType) }
func globalKey() string                        { return cache.Key("global") }

// lookup decodes a cached value into dst and reports whether it was a hit.
func (s *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		_ = s.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *CachedStore) remember(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func (s *CachedStore) forget(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("keys", keys).Warn("Cache invalidation failed")
	}
}

func (s *CachedStore) GetBaseLogic(ctx context.Context, userID string) (domain.RawLogic, error) {
	var cached domain.RawLogic
	if s.lookup(ctx, baseKey(userID), &cached) {
		return cached, nil
	}
	logic, err := s.next.GetBaseLogic(ctx, userID)
	if err != nil {
		return nil, err
	}
	if logic != nil {
		s.remember(ctx, baseKey(userID), logic)
	}
	return logic, nil
}

func (s *CachedStore) SaveBaseLogic(ctx context.Context, userID string, logic domain.RawLogic) error {
	if err := s.next.SaveBaseLogic(ctx, userID, logic); err != nil {
		return err
	}
	s.forget(ctx, baseKey(userID))
	return nil
}

func (s *CachedStore) GetStudyRecord(ctx context.Context, userID, studyType string) (*domain.StudyRecord, error) {
	var cached domain.StudyRecord
	if s.lookup(ctx, studyKey(userID, studyType), &cached) {
		return &cached, nil
	}
	rec, err := s.next.GetStudyRecord(ctx, userID, studyType)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.remember(ctx, studyKey(userID, studyType), rec)
	}
	return rec, nil
}

func (s *CachedStore) SaveStudyRecord(ctx context.Context, rec *domain.StudyRecord) error {
	if err := s.next.SaveStudyRecord(ctx, rec); err != nil {
		return err
	}
	s.forget(ctx, studyKey(rec.UserID, rec.StudyType))
	return nil
}

// ListStudyTypes is not cached.
func (s *CachedStore) ListStudyTypes(ctx context.Context, userID string) ([]string, error) {
	return s.next.ListStudyTypes(ctx, userID)
}

func (s *CachedStore) GetGlobalSettings(ctx context.Context) (*domain.GlobalSettings, error) {
	var cached domain.GlobalSettings
	if s.lookup(ctx, globalKey(), &cached) {
		return &cached, nil
	}
	g, err := s.next.GetGlobalSettings(ctx)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, globalKey(), g)
	return g, nil
}

func (s *CachedStore) SaveGlobalSettings(ctx context.Context, g *domain.GlobalSettings) error {
	if err := s.next.SaveGlobalSettings(ctx, g); err != nil {
		return err
	}
	s.forget(ctx, globalKey())
	return nil
}

// Close closes the cache and the underlying store.
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return cacheErr
}
