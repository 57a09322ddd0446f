package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
)

// memStore is an in-memory LogicStore. failWith, when set, is returned by
// every read.
type memStore struct {
	mu       sync.Mutex
	base     map[string]domain.RawLogic
	studies  map[string]*domain.StudyRecord
	global   *domain.GlobalSettings
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		base:    map[string]domain.RawLogic{},
		studies: map[string]*domain.StudyRecord{},
	}
}

func studyID(userID, studyType string) string { return userID + "/" + studyType }

func (m *memStore) GetBaseLogic(_ context.Context, userID string) (domain.RawLogic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.base[userID], nil
}

func (m *memStore) SaveBaseLogic(_ context.Context, userID string, logic domain.RawLogic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base[userID] = logic
	return nil
}

func (m *memStore) GetStudyRecord(_ context.Context, userID, studyType string) (*domain.StudyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rec, ok := m.studies[studyID(userID, studyType)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) SaveStudyRecord(_ context.Context, rec *domain.StudyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UserID == "" || rec.StudyType == "" {
		return errors.New("study record requires user_id and study_type")
	}
	cp := *rec
	m.studies[studyID(rec.UserID, rec.StudyType)] = &cp
	return nil
}

func (m *memStore) ListStudyTypes(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, rec := range m.studies {
		if rec.UserID == userID {
			out = append(out, rec.StudyType)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) GetGlobalSettings(context.Context) (*domain.GlobalSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.global == nil {
		return &domain.GlobalSettings{}, nil
	}
	cp := *m.global
	return &cp, nil
}

func (m *memStore) SaveGlobalSettings(_ context.Context, g *domain.GlobalSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.global = &cp
	return nil
}

func (m *memStore) Close() error { return nil }

// recordingCompleter returns reply and remembers the last prompt.
type recordingCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (c *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	c.prompt = prompt
	return c.reply, c.err
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}
