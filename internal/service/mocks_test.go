package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/posbindu-risk-engine/internal/domain"
)

// MockAssessmentStore is a mock implementation of domain.AssessmentStore
type MockAssessmentStore struct {
	mock.Mock
}

func (m *MockAssessmentStore) Save(ctx context.Context, assessment *domain.VisitAssessment) error {
	args := m.Called(ctx, assessment)
	return args.Error(0)
}

func (m *MockAssessmentStore) GetByID(ctx context.Context, id string) (*domain.VisitAssessment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VisitAssessment), args.Error(1)
}

func (m *MockAssessmentStore) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*domain.VisitAssessment, error) {
	args := m.Called(ctx, participantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VisitAssessment), args.Error(1)
}

func (m *MockAssessmentStore) ListReferrals(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VisitAssessment), args.Error(1)
}

func (m *MockAssessmentStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAssessmentStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
