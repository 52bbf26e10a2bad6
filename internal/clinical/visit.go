package clinical

import (
	"fmt"
	"time"

	"github.com/posbindu-risk-engine/internal/domain"
)

// VisitOutcome is every result computed for one snapshot plus the merged
// referral decision.
type VisitOutcome struct {
	VisitEvaluations
	// Snapshot is the evaluated snapshot, with the age derived from the
	// birth date when it was not given.
	Snapshot        domain.MeasurementSnapshot
	Screening       *domain.RiskFactorScore
	Referral        domain.ReferralDecision
	Recommendations []string
}

// EvaluateVisit runs each evaluator whose inputs are present in the snapshot
// and aggregates their referral triggers. An evaluator whose inputs are
// present but invalid fails the whole visit. asOf is the visit date used for
// ages and pregnancy dating.
//
// Presence rules: vitals need a blood pressure reading; adult anthropometry
// needs weight and height (or BMI) and no age in months; nutrition needs an
// age in months; CVD needs age in years, sex and blood pressure; screening
// needs the lifestyle block; maternal needs the pregnancy block.
func EvaluateVisit(s domain.MeasurementSnapshot, asOf time.Time) (VisitOutcome, error) {
	s, err := ResolveAges(s, asOf)
	if err != nil {
		return VisitOutcome{}, fmt.Errorf("dates: %w", err)
	}
	out := VisitOutcome{Snapshot: s}

	if len(s.BloodPressure) > 0 {
		vitals, err := EvaluateVitals(s)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("vitals: %w", err)
		}
		out.Vitals = &vitals
	}

	if s.AgeMonths == nil && (s.BMI != nil || (s.WeightKg != nil && s.HeightCm != nil)) {
		anthro, err := EvaluateAnthropometry(s)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("anthropometry: %w", err)
		}
		out.Anthropometry = &anthro
	}

	if s.AgeMonths != nil {
		nutrition, err := EvaluateNutrition(s)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("nutrition: %w", err)
		}
		out.Nutrition = &nutrition
	}

	if len(s.Labs) > 0 {
		labs, err := InterpretLabs(s.Labs)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("labs: %w", err)
		}
		out.Labs = labs
	}

	if s.Lifestyle != nil {
		score, err := NewRiskFactorScorer().Recompute(s)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("screening: %w", err)
		}
		out.Screening = &score
	}

	out.Recommendations = []string{}
	if s.AgeYears != nil && s.Sex != "" && len(s.BloodPressure) > 0 {
		cvd, err := ComputeCVDRisk(s)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("cvd: %w", err)
		}
		out.CVD = &cvd
		recs, err := CVDRecommendations(s, cvd)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("cvd recommendations: %w", err)
		}
		out.Recommendations = recs
	}

	if s.Pregnancy != nil {
		maternal, err := CheckMaternalRisk(s, asOf)
		if err != nil {
			return VisitOutcome{}, fmt.Errorf("maternal: %w", err)
		}
		out.Maternal = &maternal
	}

	out.Referral = AggregateReferral(out.VisitEvaluations)
	return out, nil
}
