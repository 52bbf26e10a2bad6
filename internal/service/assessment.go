package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/clinical"
	"github.com/posbindu-risk-engine/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// VisitRequest is one visit to be assessed. AssessedAt is the as-of instant
// stamped on the result; when zero the service clock is used.
type VisitRequest struct {
	VisitID       string                     `json:"visit_id"`
	ParticipantID string                     `json:"participant_id"`
	AssessedAt    time.Time                  `json:"assessed_at"`
	Snapshot      domain.MeasurementSnapshot `json:"snapshot"`
}

// CVDAssessment is the cardiovascular score together with its recommendations.
type CVDAssessment struct {
	domain.CompositeRiskResult
	Recommendations []string `json:"recommendations"`
}

// AssessmentService runs the clinical evaluators, logs their outcome and
// persists whole-visit assessments.
type AssessmentService struct {
	store  domain.AssessmentStore
	cache  domain.AssessmentCache
	engine domain.EngineConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewAssessmentService creates the service. store and cache may be nil, in
// which case assessments are computed but not kept.
func NewAssessmentService(store domain.AssessmentStore, cache domain.AssessmentCache, engine domain.EngineConfig, logger *logrus.Logger) *AssessmentService {
	if engine.StockWarningDays <= 0 {
		engine.StockWarningDays = clinical.DefaultStockWarningDays
	}
	return &AssessmentService{
		store:  store,
		cache:  cache,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// observe logs an evaluator outcome. Rejected input is a warning; an
// exhausted rule table or anything else is an error.
func (s *AssessmentService) observe(op string, fields logrus.Fields, err error) {
	entry := s.logger.WithField("operation", op).WithFields(fields)
	switch {
	case err == nil:
		entry.Debug("Evaluation completed")
	case errors.Is(err, domain.ErrRuleSetExhausted):
		entry.WithError(err).Error("Rule table has no matching rule")
	case domain.IsInputError(err):
		entry.WithError(err).WithField("error_code", domain.ErrorCode(err)).Warn("Evaluation rejected input")
	default:
		entry.WithError(err).Error("Evaluation failed")
	}
}

// ClassifyBMI evaluates BMI and waist circumference for an adult.
func (s *AssessmentService) ClassifyBMI(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.AnthropometryResult, error) {
	result, err := clinical.EvaluateAnthropometry(snapshot)
	s.observe("classify_bmi", logrus.Fields{
		"bmi_category":   result.BMI.Category,
		"waist_category": result.Waist.Category,
	}, err)
	return result, err
}

// ClassifyBloodPressure averages the readings and categorizes blood pressure
// and SpO2.
func (s *AssessmentService) ClassifyBloodPressure(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.VitalsResult, error) {
	result, err := clinical.EvaluateVitals(snapshot)
	s.observe("classify_blood_pressure", logrus.Fields{
		"readings":      len(snapshot.BloodPressure),
		"bp_category":   result.BloodPressure.Category,
		"spo2_category": result.SpO2.Category,
	}, err)
	return result, err
}

// ClassifyWaist classifies waist circumference against the sex-specific
// threshold.
func (s *AssessmentService) ClassifyWaist(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	var err error
	switch {
	case snapshot.WaistCm == nil:
		err = domain.Missing("waist_cm")
	case snapshot.Sex == "":
		err = domain.Missing("sex")
	default:
		result.Category, err = clinical.CategorizeWaist(*snapshot.WaistCm, snapshot.Sex)
		result.NumericScore = snapshot.WaistCm
	}
	s.observe("classify_waist", logrus.Fields{"category": result.Category}, err)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return result, nil
}

// ClassifySpO2 classifies oxygen saturation. An absent reading is TidakDiukur.
func (s *AssessmentService) ClassifySpO2(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
	label, err := clinical.CategorizeSpO2(snapshot.SpO2)
	s.observe("classify_spo2", logrus.Fields{"category": label}, err)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return domain.ClassificationResult{Category: label}, nil
}

// NutritionStatus classifies a child's nutrition status. A birth date is
// resolved to an age as of now.
func (s *AssessmentService) NutritionStatus(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
	snapshot, err := clinical.ResolveAges(snapshot, s.now())
	if err != nil {
		s.observe("nutrition_status", nil, err)
		return domain.ClassificationResult{}, err
	}
	result, err := clinical.EvaluateNutrition(snapshot)
	s.observe("nutrition_status", logrus.Fields{"category": result.Category}, err)
	return result, err
}

// InterpretLabs interprets each lab result in order.
func (s *AssessmentService) InterpretLabs(ctx context.Context, labs []domain.LabResult) ([]domain.LabInterpretation, error) {
	if len(labs) == 0 {
		err := domain.Missing("labs")
		s.observe("interpret_lab", nil, err)
		return nil, err
	}
	result, err := clinical.InterpretLabs(labs)
	s.observe("interpret_lab", logrus.Fields{"count": len(labs)}, err)
	return result, err
}

// ScoreScreening scores the lifestyle questionnaire.
func (s *AssessmentService) ScoreScreening(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.RiskFactorScore, error) {
	result, err := clinical.NewRiskFactorScorer().Recompute(snapshot)
	s.observe("score_screening", logrus.Fields{
		"total":    result.Total,
		"category": result.Category,
	}, err)
	return result, err
}

// ComputeCVDRisk scores cardiovascular risk and derives recommendations. A
// birth date is resolved to an age as of now.
func (s *AssessmentService) ComputeCVDRisk(ctx context.Context, snapshot domain.MeasurementSnapshot) (CVDAssessment, error) {
	snapshot, err := clinical.ResolveAges(snapshot, s.now())
	if err != nil {
		s.observe("compute_cvd_risk", nil, err)
		return CVDAssessment{}, err
	}
	result, err := clinical.ComputeCVDRisk(snapshot)
	if err != nil {
		s.observe("compute_cvd_risk", nil, err)
		return CVDAssessment{}, err
	}

	recs, err := clinical.CVDRecommendations(snapshot, result)
	s.observe("compute_cvd_risk", logrus.Fields{
		"total_score":       result.TotalScore,
		"category":          result.Category,
		"referral_required": result.ReferralRequired,
	}, err)
	if err != nil {
		return CVDAssessment{}, err
	}
	return CVDAssessment{CompositeRiskResult: result, Recommendations: recs}, nil
}

// CheckMaternalRisk flags high-risk pregnancy findings and dates the
// pregnancy as of now.
func (s *AssessmentService) CheckMaternalRisk(ctx context.Context, snapshot domain.MeasurementSnapshot) (domain.MaternalRiskResult, error) {
	result, err := clinical.CheckMaternalRisk(snapshot, s.now())
	s.observe("check_maternal_risk", logrus.Fields{
		"high_risk":  result.HighRisk,
		"risk_types": result.RiskTypes,
	}, err)
	return result, err
}

// StockStatus reports the expiry status of a consumable as of asOf. A zero
// asOf means now.
func (s *AssessmentService) StockStatus(ctx context.Context, itemName string, expiry, asOf time.Time) (domain.StockStatus, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	result, err := clinical.StockExpiry(itemName, expiry, asOf, s.engine.StockWarningDays)
	s.observe("stock_status", logrus.Fields{
		"item":   itemName,
		"status": result.Status,
	}, err)
	return result, err
}

// UseStock takes used units of a consumable from its remaining count.
func (s *AssessmentService) UseStock(ctx context.Context, itemName string, remaining, used int) (domain.StockUsage, error) {
	if itemName == "" {
		err := domain.Missing("item_name")
		s.observe("use_stock", nil, err)
		return domain.StockUsage{}, err
	}
	left, err := clinical.UseStock(remaining, used)
	s.observe("use_stock", logrus.Fields{
		"item":      itemName,
		"used":      used,
		"remaining": left,
	}, err)
	if err != nil {
		return domain.StockUsage{}, err
	}
	return domain.StockUsage{ItemName: itemName, Used: used, Remaining: left}, nil
}

// AssessVisit evaluates a whole visit, stamps it and, when configured,
// persists and caches it.
func (s *AssessmentService) AssessVisit(ctx context.Context, req VisitRequest) (*domain.VisitAssessment, error) {
	startTime := time.Now()

	if req.VisitID == "" {
		return nil, domain.Missing("visit_id")
	}
	if req.ParticipantID == "" {
		return nil, domain.Missing("participant_id")
	}

	fields := logrus.Fields{
		"visit_id":       req.VisitID,
		"participant_id": req.ParticipantID,
	}

	assessedAt := req.AssessedAt
	if assessedAt.IsZero() {
		assessedAt = s.now()
	}

	outcome, err := clinical.EvaluateVisit(req.Snapshot, assessedAt)
	if err != nil {
		s.observe("assess_visit", fields, err)
		return nil, fmt.Errorf("assessing visit %s: %w", req.VisitID, err)
	}

	assessment := &domain.VisitAssessment{
		ID:              uuid.NewString(),
		VisitID:         req.VisitID,
		ParticipantID:   req.ParticipantID,
		AssessedAt:      assessedAt.UTC(),
		Snapshot:        outcome.Snapshot,
		Vitals:          outcome.Vitals,
		Anthropometry:   outcome.Anthropometry,
		Nutrition:       outcome.Nutrition,
		Labs:            outcome.Labs,
		Screening:       outcome.Screening,
		CVD:             outcome.CVD,
		Maternal:        outcome.Maternal,
		Referral:        outcome.Referral,
		Recommendations: outcome.Recommendations,
		CreatedAt:       s.now().UTC(),
	}

	if s.store != nil && s.engine.PersistAssessments {
		if err := s.store.Save(ctx, assessment); err != nil {
			s.logger.WithFields(fields).WithError(err).Error("Failed to persist assessment")
			return nil, fmt.Errorf("persisting assessment: %w", err)
		}
	}
	if s.cache != nil {
		s.cache.Set(ctx, assessment)
	}

	entry := s.logger.WithFields(fields).WithFields(logrus.Fields{
		"assessment_id":     assessment.ID,
		"referral_required": assessment.Referral.Required,
		"duration_ms":       time.Since(startTime).Milliseconds(),
	})
	if assessment.Referral.Required {
		entry.WithField("reasons", assessment.Referral.Reasons).Warn("Visit requires referral")
	} else {
		entry.Info("Visit assessed")
	}

	return assessment, nil
}

// GetAssessment returns a stored assessment, consulting the cache first.
func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*domain.VisitAssessment, error) {
	if s.cache != nil {
		if a, ok := s.cache.Get(ctx, id); ok {
			return a, nil
		}
	}
	if s.store == nil {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, a)
	}
	return a, nil
}

// ListByParticipant pages through a participant's assessments, newest first.
func (s *AssessmentService) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*domain.VisitAssessment, error) {
	if participantID == "" {
		return nil, domain.Missing("participant_id")
	}
	if s.store == nil {
		return []*domain.VisitAssessment{}, nil
	}
	limit, offset = normalizePage(limit, offset)
	return s.store.ListByParticipant(ctx, participantID, limit, offset)
}

// ListReferrals pages through assessments that require referral.
func (s *AssessmentService) ListReferrals(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	if s.store == nil {
		return []*domain.VisitAssessment{}, nil
	}
	limit, offset = normalizePage(limit, offset)
	return s.store.ListReferrals(ctx, limit, offset)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
