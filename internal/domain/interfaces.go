package domain

import (
	"context"
)

// LogicStore persists the three configuration layers. Getters return nil
// without error when a record is absent, except GetGlobalSettings which
// always returns a usable value.
type LogicStore interface {
	GetBaseLogic(ctx context.Context, userID string) (RawLogic, error)
	SaveBaseLogic(ctx context.Context, userID string, logic RawLogic) error
	GetStudyRecord(ctx context.Context, userID, studyType string) (*StudyRecord, error)
	SaveStudyRecord(ctx context.Context, record *StudyRecord) error
	ListStudyTypes(ctx context.Context, userID string) ([]string, error)
	GetGlobalSettings(ctx context.Context) (*GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, settings *GlobalSettings) error
	Close() error
}

// Completer turns a compiled prompt into report text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetLLMConfig() *LLMConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
