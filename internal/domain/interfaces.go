package domain

import (
	"context"
)

// AssessmentStore persists visit assessments. Implementations: the Postgres
// repository and the embedded SQLite store.
type AssessmentStore interface {
	Save(ctx context.Context, assessment *VisitAssessment) error
	GetByID(ctx context.Context, id string) (*VisitAssessment, error)
	ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*VisitAssessment, error)
	ListReferrals(ctx context.Context, limit, offset int) ([]*VisitAssessment, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// AssessmentCache caches recently computed assessments by ID.
type AssessmentCache interface {
	Get(ctx context.Context, id string) (*VisitAssessment, bool)
	Set(ctx context.Context, assessment *VisitAssessment)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
