package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/posbindu-risk-engine/internal/domain"
)

// BreakerConfig tunes the circuit breaker around the assessment store.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig trips after at least 3 requests with a 60% failure ratio.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// ResilientStore guards a domain.AssessmentStore with a circuit breaker so a
// failing database does not stall every visit.
type ResilientStore struct {
	next    domain.AssessmentStore
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

var _ domain.AssessmentStore = (*ResilientStore)(nil)

// NewResilientStore wraps next.
func NewResilientStore(next domain.AssessmentStore, cfg BreakerConfig, logger *logrus.Logger) *ResilientStore {
	settings := gobreaker.Settings{
		Name:        "AssessmentStore",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// Lookups of unknown ids and rejected input are not store failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || domain.IsInputError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &ResilientStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// State reports the breaker state.
func (s *ResilientStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *ResilientStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.breaker.Execute(fn)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	return nil, err
}

func (s *ResilientStore) Save(ctx context.Context, assessment *domain.VisitAssessment) error {
	_, err := s.execute("save", func() (interface{}, error) {
		return nil, s.next.Save(ctx, assessment)
	})
	return err
}

func (s *ResilientStore) GetByID(ctx context.Context, id string) (*domain.VisitAssessment, error) {
	result, err := s.execute("get", func() (interface{}, error) {
		return s.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.VisitAssessment), nil
}

func (s *ResilientStore) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*domain.VisitAssessment, error) {
	result, err := s.execute("list by participant", func() (interface{}, error) {
		return s.next.ListByParticipant(ctx, participantID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.VisitAssessment), nil
}

func (s *ResilientStore) ListReferrals(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	result, err := s.execute("list referrals", func() (interface{}, error) {
		return s.next.ListReferrals(ctx, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.VisitAssessment), nil
}

func (s *ResilientStore) Count(ctx context.Context) (int, error) {
	result, err := s.execute("count", func() (interface{}, error) {
		return s.next.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *ResilientStore) Close() error {
	return s.next.Close()
}
